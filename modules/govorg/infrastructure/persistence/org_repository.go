package persistence

import (
	"context"
	"errors"
	"time"

	gerrors "github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/newsanalyzer/govkb/modules/govorg/domain/organization"
	"github.com/newsanalyzer/govkb/pkg/composables"
)

const (
	selectOrgColumns = `
	id, official_name, acronym, org_type, branch, parent_id, org_level,
	established_date, dissolved_date, description, mission_statement,
	website_url, jurisdiction_areas, register_id, register_url, register_slug,
	import_source, created_at, updated_at, created_by, updated_by`

	selectOrgByIDQuery = `SELECT` + selectOrgColumns + `
	FROM govorg_organizations WHERE id = $1`

	selectOrgByRegisterIDQuery = `SELECT` + selectOrgColumns + `
	FROM govorg_organizations WHERE register_id = $1`

	selectOrgByAcronymQuery = `SELECT` + selectOrgColumns + `
	FROM govorg_organizations
	WHERE LOWER(acronym) = LOWER($1) AND dissolved_date IS NULL`

	selectOrgByNameQuery = `SELECT` + selectOrgColumns + `
	FROM govorg_organizations
	WHERE LOWER(official_name) = LOWER($1) AND dissolved_date IS NULL`

	selectAllOrgsQuery = `SELECT` + selectOrgColumns + `
	FROM govorg_organizations ORDER BY official_name`

	upsertOrgQuery = `
	INSERT INTO govorg_organizations (
		id, official_name, acronym, org_type, branch, parent_id, org_level,
		established_date, dissolved_date, description, mission_statement,
		website_url, jurisdiction_areas, register_id, register_url,
		register_slug, import_source, created_at, updated_at, created_by,
		updated_by
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
		$16, $17, $18, $19, $20, $21
	)
	ON CONFLICT (id) DO UPDATE SET
		official_name = EXCLUDED.official_name,
		acronym = EXCLUDED.acronym,
		org_type = EXCLUDED.org_type,
		branch = EXCLUDED.branch,
		parent_id = EXCLUDED.parent_id,
		org_level = EXCLUDED.org_level,
		established_date = EXCLUDED.established_date,
		dissolved_date = EXCLUDED.dissolved_date,
		description = EXCLUDED.description,
		mission_statement = EXCLUDED.mission_statement,
		website_url = EXCLUDED.website_url,
		jurisdiction_areas = EXCLUDED.jurisdiction_areas,
		register_id = EXCLUDED.register_id,
		register_url = EXCLUDED.register_url,
		register_slug = EXCLUDED.register_slug,
		import_source = EXCLUDED.import_source,
		updated_at = EXCLUDED.updated_at,
		updated_by = EXCLUDED.updated_by`

	countActiveOrgsQuery = `
	SELECT COUNT(*) FROM govorg_organizations WHERE dissolved_date IS NULL`

	countOrgsByBranchQuery = `
	SELECT branch, COUNT(*) FROM govorg_organizations
	WHERE dissolved_date IS NULL GROUP BY branch`
)

type OrgRepository struct{}

func NewOrgRepository() organization.Repository {
	return &OrgRepository{}
}

func (r *OrgRepository) GetByID(ctx context.Context, id uuid.UUID) (*organization.Organization, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	return scanOrg(tx.QueryRow(ctx, selectOrgByIDQuery, pgUUID(id)))
}

func (r *OrgRepository) GetByRegisterID(ctx context.Context, registerID int64) (*organization.Organization, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	return scanOrg(tx.QueryRow(ctx, selectOrgByRegisterIDQuery, registerID))
}

func (r *OrgRepository) FindByAcronym(ctx context.Context, acronym string) (*organization.Organization, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	return scanOrg(tx.QueryRow(ctx, selectOrgByAcronymQuery, acronym))
}

func (r *OrgRepository) FindByOfficialName(ctx context.Context, name string) (*organization.Organization, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	return scanOrg(tx.QueryRow(ctx, selectOrgByNameQuery, name))
}

func (r *OrgRepository) GetAll(ctx context.Context) ([]*organization.Organization, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, selectAllOrgsQuery)
	if err != nil {
		return nil, gerrors.Wrap(err, "list organizations")
	}
	defer rows.Close()

	out := make([]*organization.Organization, 0, 64)
	for rows.Next() {
		org, err := scanOrg(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, org)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *OrgRepository) Save(ctx context.Context, org *organization.Organization) (*organization.Organization, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	source := org.Source()
	_, err = tx.Exec(ctx, upsertOrgQuery,
		pgUUID(org.ID()),
		org.OfficialName(),
		nullString(org.Acronym()),
		string(org.OrgType()),
		string(org.Branch()),
		pgUUIDPtr(org.ParentID()),
		org.OrgLevel(),
		pgDate(org.EstablishedDate()),
		pgDate(org.DissolvedDate()),
		nullString(org.Description()),
		nullString(org.MissionStatement()),
		nullString(org.WebsiteURL()),
		org.JurisdictionAreas(),
		source.RegisterID,
		nullString(source.RegisterURL),
		nullString(source.Slug),
		nullString(org.ImportSource()),
		org.CreatedAt(),
		org.UpdatedAt(),
		nullString(org.CreatedBy()),
		nullString(org.UpdatedBy()),
	)
	if err != nil {
		return nil, gerrors.Wrap(err, "save organization")
	}
	return org, nil
}

func (r *OrgRepository) CountActive(ctx context.Context) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := tx.QueryRow(ctx, countActiveOrgsQuery).Scan(&count); err != nil {
		return 0, gerrors.Wrap(err, "count active organizations")
	}
	return count, nil
}

func (r *OrgRepository) CountByBranch(ctx context.Context) (map[organization.Branch]int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, countOrgsByBranchQuery)
	if err != nil {
		return nil, gerrors.Wrap(err, "count organizations by branch")
	}
	defer rows.Close()

	out := map[organization.Branch]int64{}
	for rows.Next() {
		var branch string
		var count int64
		if err := rows.Scan(&branch, &count); err != nil {
			return nil, err
		}
		out[organization.Branch(branch)] = count
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

type pgxRow interface {
	Scan(dest ...any) error
}

func scanOrg(row pgxRow) (*organization.Organization, error) {
	var (
		id                pgtype.UUID
		officialName      string
		acronym           pgtype.Text
		orgType           string
		branch            string
		parentID          pgtype.UUID
		orgLevel          int
		establishedDate   pgtype.Date
		dissolvedDate     pgtype.Date
		description       pgtype.Text
		missionStatement  pgtype.Text
		websiteURL        pgtype.Text
		jurisdictionAreas []string
		registerID        pgtype.Int8
		registerURL       pgtype.Text
		registerSlug      pgtype.Text
		importSource      pgtype.Text
		createdAt         time.Time
		updatedAt         time.Time
		createdBy         pgtype.Text
		updatedBy         pgtype.Text
	)

	err := row.Scan(
		&id, &officialName, &acronym, &orgType, &branch, &parentID, &orgLevel,
		&establishedDate, &dissolvedDate, &description, &missionStatement,
		&websiteURL, &jurisdictionAreas, &registerID, &registerURL,
		&registerSlug, &importSource, &createdAt, &updatedAt, &createdBy,
		&updatedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, organization.ErrNotFound
		}
		return nil, gerrors.Wrap(err, "scan organization")
	}

	source := organization.SourceRef{
		RegisterURL: registerURL.String,
		Slug:        registerSlug.String,
	}
	if registerID.Valid {
		rid := registerID.Int64
		source.RegisterID = &rid
	}

	opts := []organization.Option{
		organization.WithID(uuid.UUID(id.Bytes)),
		organization.WithAcronym(acronym.String),
		organization.WithOrgLevel(orgLevel),
		organization.WithDescription(description.String),
		organization.WithMissionStatement(missionStatement.String),
		organization.WithWebsiteURL(websiteURL.String),
		organization.WithJurisdictionAreas(jurisdictionAreas),
		organization.WithSource(source),
		organization.WithImportSource(importSource.String),
		organization.WithCreatedAt(createdAt),
		organization.WithUpdatedAt(updatedAt),
		organization.WithAudit(createdBy.String, updatedBy.String),
	}
	if parentID.Valid {
		pid := uuid.UUID(parentID.Bytes)
		opts = append(opts, organization.WithParentID(&pid))
	}
	if establishedDate.Valid {
		d := establishedDate.Time
		opts = append(opts, organization.WithEstablishedDate(&d))
	}
	if dissolvedDate.Valid {
		d := dissolvedDate.Time
		opts = append(opts, organization.WithDissolvedDate(&d))
	}

	return organization.New(
		officialName,
		organization.Branch(branch),
		organization.Type(orgType),
		opts...,
	), nil
}

func pgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

func pgUUIDPtr(id *uuid.UUID) pgtype.UUID {
	if id == nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: *id, Valid: true}
}

func pgDate(t *time.Time) pgtype.Date {
	if t == nil {
		return pgtype.Date{}
	}
	return pgtype.Date{Time: *t, Valid: true}
}

func nullString(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}
