package organization

import (
	"time"

	"github.com/google/uuid"
)

// SourceRef holds the external-source identity of a record, refreshed on
// every sync.
type SourceRef struct {
	RegisterID  *int64 `json:"registerId,omitempty"`
	RegisterURL string `json:"registerUrl,omitempty"`
	Slug        string `json:"slug,omitempty"`
}

// IsZero reports whether the record carries no external-source identity at
// all, as is the case for records arriving through a CSV upload.
func (s SourceRef) IsZero() bool {
	return s.RegisterID == nil && s.RegisterURL == "" && s.Slug == ""
}

// Organization is a government organization record. Curated fields
// (parent, branch, jurisdiction areas, mission statement) are operator-owned:
// automated sync reads them but never overwrites them once set.
type Organization struct {
	id                uuid.UUID
	officialName      string
	acronym           string
	orgType           Type
	branch            Branch
	parentID          *uuid.UUID
	orgLevel          int
	establishedDate   *time.Time
	dissolvedDate     *time.Time
	description       string
	missionStatement  string
	websiteURL        string
	jurisdictionAreas []string
	source            SourceRef
	importSource      string
	createdAt         time.Time
	updatedAt         time.Time
	createdBy         string
	updatedBy         string
}

type Option func(*Organization)

func WithID(id uuid.UUID) Option {
	return func(o *Organization) {
		o.id = id
	}
}

func WithAcronym(acronym string) Option {
	return func(o *Organization) {
		o.acronym = acronym
	}
}

func WithParentID(parentID *uuid.UUID) Option {
	return func(o *Organization) {
		o.parentID = parentID
	}
}

func WithOrgLevel(level int) Option {
	return func(o *Organization) {
		o.orgLevel = level
	}
}

func WithEstablishedDate(date *time.Time) Option {
	return func(o *Organization) {
		o.establishedDate = date
	}
}

func WithDissolvedDate(date *time.Time) Option {
	return func(o *Organization) {
		o.dissolvedDate = date
	}
}

func WithDescription(description string) Option {
	return func(o *Organization) {
		o.description = description
	}
}

func WithMissionStatement(statement string) Option {
	return func(o *Organization) {
		o.missionStatement = statement
	}
}

func WithWebsiteURL(url string) Option {
	return func(o *Organization) {
		o.websiteURL = url
	}
}

func WithJurisdictionAreas(areas []string) Option {
	return func(o *Organization) {
		o.jurisdictionAreas = areas
	}
}

func WithSource(source SourceRef) Option {
	return func(o *Organization) {
		o.source = source
	}
}

func WithImportSource(source string) Option {
	return func(o *Organization) {
		o.importSource = source
		o.createdBy = source
		o.updatedBy = source
	}
}

func WithCreatedAt(createdAt time.Time) Option {
	return func(o *Organization) {
		o.createdAt = createdAt
	}
}

func WithUpdatedAt(updatedAt time.Time) Option {
	return func(o *Organization) {
		o.updatedAt = updatedAt
	}
}

func WithAudit(createdBy, updatedBy string) Option {
	return func(o *Organization) {
		o.createdBy = createdBy
		o.updatedBy = updatedBy
	}
}

func New(officialName string, branch Branch, orgType Type, opts ...Option) *Organization {
	o := &Organization{
		id:           uuid.New(),
		officialName: officialName,
		branch:       branch,
		orgType:      orgType,
		orgLevel:     1,
		createdAt:    time.Now(),
		updatedAt:    time.Now(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Organization) ID() uuid.UUID {
	return o.id
}

func (o *Organization) OfficialName() string {
	return o.officialName
}

func (o *Organization) Acronym() string {
	return o.acronym
}

func (o *Organization) OrgType() Type {
	return o.orgType
}

func (o *Organization) Branch() Branch {
	return o.branch
}

func (o *Organization) ParentID() *uuid.UUID {
	return o.parentID
}

func (o *Organization) OrgLevel() int {
	return o.orgLevel
}

func (o *Organization) EstablishedDate() *time.Time {
	return o.establishedDate
}

func (o *Organization) DissolvedDate() *time.Time {
	return o.dissolvedDate
}

func (o *Organization) Description() string {
	return o.description
}

func (o *Organization) MissionStatement() string {
	return o.missionStatement
}

func (o *Organization) WebsiteURL() string {
	return o.websiteURL
}

func (o *Organization) JurisdictionAreas() []string {
	return o.jurisdictionAreas
}

func (o *Organization) Source() SourceRef {
	return o.source
}

func (o *Organization) ImportSource() string {
	return o.importSource
}

func (o *Organization) CreatedAt() time.Time {
	return o.createdAt
}

func (o *Organization) UpdatedAt() time.Time {
	return o.updatedAt
}

func (o *Organization) CreatedBy() string {
	return o.createdBy
}

func (o *Organization) UpdatedBy() string {
	return o.updatedBy
}

// IsActive reports whether the record has not been marked dissolved. Match
// resolution only considers active records.
func (o *Organization) IsActive() bool {
	return o.dissolvedDate == nil
}

func (o *Organization) SetAcronym(acronym string) {
	o.acronym = acronym
}

func (o *Organization) SetOfficialName(name string) {
	o.officialName = name
}

func (o *Organization) SetOrgType(t Type) {
	o.orgType = t
}

func (o *Organization) SetBranch(b Branch) {
	o.branch = b
}

func (o *Organization) SetParentID(parentID *uuid.UUID) {
	o.parentID = parentID
}

func (o *Organization) SetOrgLevel(level int) {
	o.orgLevel = level
}

func (o *Organization) SetEstablishedDate(date *time.Time) {
	o.establishedDate = date
}

func (o *Organization) SetDissolvedDate(date *time.Time) {
	o.dissolvedDate = date
}

func (o *Organization) SetDescription(description string) {
	o.description = description
}

func (o *Organization) SetMissionStatement(statement string) {
	o.missionStatement = statement
}

func (o *Organization) SetWebsiteURL(url string) {
	o.websiteURL = url
}

func (o *Organization) SetJurisdictionAreas(areas []string) {
	o.jurisdictionAreas = areas
}

func (o *Organization) SetSource(source SourceRef) {
	o.source = source
}

// StampNew records the import source that created the record.
func (o *Organization) StampNew(source string) {
	o.createdBy = source
	o.updatedBy = source
	o.importSource = source
}

// Stamp records which import source last touched the record.
func (o *Organization) Stamp(updatedBy string) {
	o.updatedBy = updatedBy
	o.importSource = updatedBy
	o.updatedAt = time.Now()
}

// Snapshot is the exported, JSON-serializable projection of an Organization,
// used by API responses and merge-conflict diffs.
type Snapshot struct {
	ID                uuid.UUID  `json:"id"`
	OfficialName      string     `json:"officialName"`
	Acronym           string     `json:"acronym,omitempty"`
	OrgType           Type       `json:"orgType"`
	Branch            Branch     `json:"branch"`
	ParentID          *uuid.UUID `json:"parentId,omitempty"`
	OrgLevel          int        `json:"orgLevel"`
	EstablishedDate   *string    `json:"establishedDate,omitempty"`
	DissolvedDate     *string    `json:"dissolvedDate,omitempty"`
	Description       string     `json:"description,omitempty"`
	MissionStatement  string     `json:"missionStatement,omitempty"`
	WebsiteURL        string     `json:"websiteUrl,omitempty"`
	JurisdictionAreas []string   `json:"jurisdictionAreas,omitempty"`
	Source            SourceRef  `json:"source"`
	ImportSource      string     `json:"importSource,omitempty"`
}

const dateLayout = "2006-01-02"

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}

func (o *Organization) Snapshot() Snapshot {
	return Snapshot{
		ID:                o.id,
		OfficialName:      o.officialName,
		Acronym:           o.acronym,
		OrgType:           o.orgType,
		Branch:            o.branch,
		ParentID:          o.parentID,
		OrgLevel:          o.orgLevel,
		EstablishedDate:   formatDate(o.establishedDate),
		DissolvedDate:     formatDate(o.dissolvedDate),
		Description:       o.description,
		MissionStatement:  o.missionStatement,
		WebsiteURL:        o.websiteURL,
		JurisdictionAreas: o.jurisdictionAreas,
		Source:            o.source,
		ImportSource:      o.importSource,
	}
}
