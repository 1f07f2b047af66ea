package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/newsanalyzer/govkb/modules/govorg/domain/organization"
)

// csvColumns is the full expected schema; officialName, branch and orgType
// are mandatory headers, the rest are optional. Column order does not matter,
// rows are read by header name.
var csvColumns = []string{
	"officialname", "acronym", "branch", "orgtype", "orglevel",
	"parentid", "establisheddate", "dissolveddate", "websiteurl",
	"jurisdictionareas", "description", "missionstatement",
}

var requiredColumns = []string{"officialname", "branch", "orgtype"}

// ValidationError is one violation found during the validation phase.
type ValidationError struct {
	Line    int    `json:"line"`
	Field   string `json:"field"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

// ImportResult summarizes one import. When ValidationErrors is non-empty no
// row was written: validation is all-or-nothing.
type ImportResult struct {
	Success          bool              `json:"success"`
	Added            int               `json:"added"`
	Updated          int               `json:"updated"`
	Skipped          int               `json:"skipped"`
	Failed           int               `json:"failed"`
	ValidationErrors []ValidationError `json:"validationErrors,omitempty"`
	LinkWarnings     []string          `json:"linkWarnings,omitempty"`
	Conflicts        []MergeConflict   `json:"conflicts,omitempty"`
	Errors           []string          `json:"errors,omitempty"`
}

type csvRow struct {
	line              int
	officialName      string
	acronym           string
	branch            organization.Branch
	orgType           organization.Type
	orgLevel          int
	parentRef         string
	establishedDate   *time.Time
	dissolvedDate     *time.Time
	websiteURL        string
	jurisdictionAreas []string
	description       string
	missionStatement  string
}

// CsvImportService imports legislative and judicial records the Federal
// Register does not carry. Validation runs over the whole file first; commit
// only starts with zero validation errors.
type CsvImportService struct {
	repo     organization.Repository
	matcher  *MatchResolver
	linker   *HierarchyLinker
	validate *validator.Validate
	log      *logrus.Logger
}

func NewCsvImportService(repo organization.Repository, log *logrus.Logger) *CsvImportService {
	return &CsvImportService{
		repo:     repo,
		matcher:  NewMatchResolver(repo),
		linker:   NewHierarchyLinker(repo),
		validate: validator.New(),
		log:      log,
	}
}

// Import runs both phases. A non-nil error means the file could not be
// processed at all; validation failures come back inside the result.
func (s *CsvImportService) Import(ctx context.Context, r io.Reader) (*ImportResult, error) {
	result := &ImportResult{}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "read csv")
	}
	if len(records) == 0 {
		result.ValidationErrors = append(result.ValidationErrors, ValidationError{
			Line: 1, Field: "file", Message: "csv file is empty",
		})
		return result, nil
	}

	columns, ok := s.validateHeader(records[0], result)
	if !ok {
		return result, nil
	}

	rows := s.parseRows(records[1:], columns, result)
	s.checkDuplicateAcronyms(rows, result)
	if err := s.checkParentRefs(ctx, rows, result); err != nil {
		return nil, err
	}

	if len(result.ValidationErrors) > 0 {
		s.log.WithField("errors", len(result.ValidationErrors)).Warn("csv validation failed")
		return result, nil
	}

	s.commit(ctx, rows, result)
	result.Success = result.Failed == 0
	s.log.WithFields(logrus.Fields{
		"added":   result.Added,
		"updated": result.Updated,
		"skipped": result.Skipped,
		"failed":  result.Failed,
	}).Info("csv import completed")
	return result, nil
}

func (s *CsvImportService) validateHeader(header []string, result *ImportResult) (map[string]int, bool) {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}

	known := make(map[string]struct{}, len(csvColumns))
	for _, c := range csvColumns {
		known[c] = struct{}{}
	}
	for name := range columns {
		if _, ok := known[name]; !ok {
			result.ValidationErrors = append(result.ValidationErrors, ValidationError{
				Line: 1, Field: "headers", Value: name, Message: "unknown column",
			})
		}
	}
	for _, required := range requiredColumns {
		if _, ok := columns[required]; !ok {
			result.ValidationErrors = append(result.ValidationErrors, ValidationError{
				Line: 1, Field: "headers", Value: strings.Join(header, ","),
				Message: "missing required header: " + required,
			})
		}
	}
	if len(result.ValidationErrors) > 0 {
		return nil, false
	}
	return columns, true
}

func cell(record []string, columns map[string]int, name string) string {
	idx, ok := columns[name]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func (s *CsvImportService) parseRows(records [][]string, columns map[string]int, result *ImportResult) []*csvRow {
	addErr := func(line int, field, value, message string) {
		result.ValidationErrors = append(result.ValidationErrors, ValidationError{
			Line: line, Field: field, Value: value, Message: message,
		})
	}

	var rows []*csvRow
	for i, record := range records {
		line := i + 2 // header is line 1
		if isEmptyRecord(record) {
			continue
		}

		row := &csvRow{line: line, orgLevel: 1}
		valid := true

		row.officialName = cell(record, columns, "officialname")
		if row.officialName == "" {
			addErr(line, "officialName", "", "official name is required")
			valid = false
		}

		row.acronym = cell(record, columns, "acronym")

		branchValue := cell(record, columns, "branch")
		if branchValue == "" {
			addErr(line, "branch", "", "branch is required")
			valid = false
		} else if branch, err := organization.ParseBranch(branchValue); err != nil {
			addErr(line, "branch", branchValue,
				"invalid branch, must be one of: executive, legislative, judicial")
			valid = false
		} else {
			row.branch = branch
		}

		typeValue := cell(record, columns, "orgtype")
		if typeValue == "" {
			addErr(line, "orgType", "", "organization type is required")
			valid = false
		} else if orgType, err := organization.ParseType(typeValue); err != nil {
			addErr(line, "orgType", typeValue, "invalid organization type")
			valid = false
		} else {
			row.orgType = orgType
		}

		if levelValue := cell(record, columns, "orglevel"); levelValue != "" {
			level, err := strconv.Atoi(levelValue)
			switch {
			case err != nil:
				addErr(line, "orgLevel", levelValue, "orgLevel must be a number")
				valid = false
			case level < 1 || level > 10:
				addErr(line, "orgLevel", levelValue, "orgLevel must be between 1 and 10")
				valid = false
			default:
				row.orgLevel = level
			}
		}

		row.parentRef = cell(record, columns, "parentid")

		for _, dateField := range []struct {
			column string
			field  string
			dst    **time.Time
		}{
			{"establisheddate", "establishedDate", &row.establishedDate},
			{"dissolveddate", "dissolvedDate", &row.dissolvedDate},
		} {
			value := cell(record, columns, dateField.column)
			if value == "" {
				continue
			}
			parsed, err := time.Parse("2006-01-02", value)
			if err != nil {
				addErr(line, dateField.field, value, "invalid date, expected yyyy-mm-dd")
				valid = false
				continue
			}
			*dateField.dst = &parsed
		}

		if urlValue := cell(record, columns, "websiteurl"); urlValue != "" {
			if err := s.validate.Var(urlValue, "url"); err != nil {
				addErr(line, "websiteUrl", urlValue, "invalid url")
				valid = false
			} else {
				row.websiteURL = urlValue
			}
		}

		if areas := cell(record, columns, "jurisdictionareas"); areas != "" {
			for _, area := range strings.Split(areas, ";") {
				if area = strings.TrimSpace(area); area != "" {
					row.jurisdictionAreas = append(row.jurisdictionAreas, area)
				}
			}
		}

		row.description = cell(record, columns, "description")
		row.missionStatement = cell(record, columns, "missionstatement")

		if valid {
			rows = append(rows, row)
		}
	}
	return rows
}

func isEmptyRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func (s *CsvImportService) checkDuplicateAcronyms(rows []*csvRow, result *ImportResult) {
	lines := map[string][]int{}
	for _, row := range rows {
		if row.acronym == "" {
			continue
		}
		key := strings.ToLower(row.acronym)
		lines[key] = append(lines[key], row.line)
	}
	for acronym, occurrences := range lines {
		if len(occurrences) < 2 {
			continue
		}
		parts := make([]string, len(occurrences))
		for i, l := range occurrences {
			parts[i] = strconv.Itoa(l)
		}
		result.ValidationErrors = append(result.ValidationErrors, ValidationError{
			Line: occurrences[0], Field: "acronym", Value: acronym,
			Message: fmt.Sprintf("duplicate acronym %q found on lines: %s", acronym, strings.Join(parts, ", ")),
		})
	}
}

// checkParentRefs validates that every parent reference resolves either to
// another row in the file or to a stored record, before anything is written.
func (s *CsvImportService) checkParentRefs(ctx context.Context, rows []*csvRow, result *ImportResult) error {
	inFile := map[string]struct{}{}
	for _, row := range rows {
		if row.acronym != "" {
			inFile[strings.ToLower(row.acronym)] = struct{}{}
		}
	}

	for _, row := range rows {
		if row.parentRef == "" {
			continue
		}
		if id, err := uuid.Parse(row.parentRef); err == nil {
			if _, err := s.repo.GetByID(ctx, id); err != nil {
				if errors.Is(err, organization.ErrNotFound) {
					result.ValidationErrors = append(result.ValidationErrors, ValidationError{
						Line: row.line, Field: "parentId", Value: row.parentRef,
						Message: "parent id does not reference an existing organization",
					})
					continue
				}
				return err
			}
			continue
		}

		key := strings.ToLower(row.parentRef)
		if _, ok := inFile[key]; ok {
			continue
		}
		if _, err := s.repo.FindByAcronym(ctx, row.parentRef); err != nil {
			if errors.Is(err, organization.ErrNotFound) {
				result.ValidationErrors = append(result.ValidationErrors, ValidationError{
					Line: row.line, Field: "parentId", Value: row.parentRef,
					Message: "parent reference resolves to neither a file row nor a stored record",
				})
				continue
			}
			return err
		}
	}
	return nil
}

// commit upserts every row through the shared match/merge path, then links
// parents in a second pass so children listed before their parents resolve.
func (s *CsvImportService) commit(ctx context.Context, rows []*csvRow, result *ImportResult) {
	idByAcronym := map[string]uuid.UUID{}
	type pendingLink struct {
		childID   uuid.UUID
		childName string
		parentRef string
	}
	var links []pendingLink

	for _, row := range rows {
		org, outcome, err := s.upsertRow(ctx, row, result)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors,
				fmt.Sprintf("line %d: %s", row.line, err.Error()))
			s.log.WithError(err).WithField("line", row.line).Error("csv row failed")
			continue
		}
		if outcome != nil {
			result.Conflicts = append(result.Conflicts, *outcome)
		}
		if row.acronym != "" {
			idByAcronym[strings.ToLower(row.acronym)] = org.ID()
		}
		if row.parentRef != "" {
			links = append(links, pendingLink{
				childID:   org.ID(),
				childName: org.OfficialName(),
				parentRef: row.parentRef,
			})
		}
	}

	for _, pending := range links {
		parentID, err := s.resolveParent(ctx, pending.parentRef, idByAcronym)
		if err != nil {
			result.LinkWarnings = append(result.LinkWarnings,
				fmt.Sprintf("parent %q for %q could not be resolved", pending.parentRef, pending.childName))
			continue
		}
		warning, err := s.linker.Link(ctx, parentLink{
			ChildID:   pending.childID,
			ParentID:  parentID,
			ChildName: pending.childName,
		})
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, err.Error())
			continue
		}
		if warning != "" {
			result.LinkWarnings = append(result.LinkWarnings, warning)
		}
	}
}

func (s *CsvImportService) upsertRow(ctx context.Context, row *csvRow, result *ImportResult) (*organization.Organization, *MergeConflict, error) {
	opts := []organization.Option{
		organization.WithOrgLevel(row.orgLevel),
		organization.WithImportSource(SourceCsvImport),
	}
	if row.acronym != "" {
		opts = append(opts, organization.WithAcronym(row.acronym))
	}
	if row.establishedDate != nil {
		opts = append(opts, organization.WithEstablishedDate(row.establishedDate))
	}
	if row.dissolvedDate != nil {
		opts = append(opts, organization.WithDissolvedDate(row.dissolvedDate))
	}
	if row.websiteURL != "" {
		opts = append(opts, organization.WithWebsiteURL(row.websiteURL))
	}
	if len(row.jurisdictionAreas) > 0 {
		opts = append(opts, organization.WithJurisdictionAreas(row.jurisdictionAreas))
	}
	if row.description != "" {
		opts = append(opts, organization.WithDescription(row.description))
	}
	if row.missionStatement != "" {
		opts = append(opts, organization.WithMissionStatement(row.missionStatement))
	}
	incoming := organization.New(row.officialName, row.branch, row.orgType, opts...)

	existing, err := s.matcher.Resolve(ctx, incoming)
	if err != nil {
		return nil, nil, err
	}

	if existing == nil {
		incoming.StampNew(SourceCsvImport)
		if _, err := s.repo.Save(ctx, incoming); err != nil {
			return nil, nil, err
		}
		result.Added++
		return incoming, nil, nil
	}

	conflict := NewConflict(existing, incoming, SourceCsvImport, DiffFields(existing, incoming))
	outcome := Merge(existing, incoming, SourceCsvImport)
	if _, err := s.repo.Save(ctx, existing); err != nil {
		return nil, nil, err
	}
	if outcome.Changed {
		result.Updated++
	} else {
		result.Skipped++
	}
	return existing, conflict, nil
}

func (s *CsvImportService) resolveParent(ctx context.Context, ref string, idByAcronym map[string]uuid.UUID) (uuid.UUID, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return id, nil
	}
	if id, ok := idByAcronym[strings.ToLower(ref)]; ok {
		return id, nil
	}
	parent, err := s.repo.FindByAcronym(ctx, ref)
	if err != nil {
		return uuid.Nil, err
	}
	return parent.ID(), nil
}
