package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/newsanalyzer/govkb/modules/govorg/domain/organization"
	"github.com/newsanalyzer/govkb/modules/govorg/services"
	"github.com/newsanalyzer/govkb/pkg/application"
	"github.com/newsanalyzer/govkb/pkg/composables"
	"github.com/newsanalyzer/govkb/pkg/configuration"
)

// SyncAPIController exposes the reconciliation engine: trigger and inspect
// Federal Register syncs, import CSV files, resolve merge conflicts, and
// browse the resulting records.
type SyncAPIController struct {
	app      application.Application
	sync     *services.SyncService
	importer *services.CsvImportService
	resolver *services.ConflictResolver
	repo     organization.Repository
	basePath string
}

func NewSyncAPIController(app application.Application, repo organization.Repository) application.Controller {
	return &SyncAPIController{
		app:      app,
		sync:     app.Service((*services.SyncService)(nil)).(*services.SyncService),
		importer: app.Service((*services.CsvImportService)(nil)).(*services.CsvImportService),
		resolver: app.Service((*services.ConflictResolver)(nil)).(*services.ConflictResolver),
		repo:     repo,
		basePath: "/gov/api",
	}
}

func (c *SyncAPIController) Key() string {
	return c.basePath
}

func (c *SyncAPIController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()

	router.HandleFunc("/sync", c.instrumentAPI("sync", c.TriggerSync)).Methods(http.MethodPost)
	router.HandleFunc("/sync/status", c.instrumentAPI("sync_status", c.SyncStatus)).Methods(http.MethodGet)
	router.HandleFunc("/organizations/import", c.instrumentAPI("import", c.ImportCsv)).Methods(http.MethodPost)
	router.HandleFunc("/organizations/conflicts:resolve", c.instrumentAPI("resolve_conflict", c.ResolveConflict)).Methods(http.MethodPost)
	router.HandleFunc("/organizations", c.instrumentAPI("list", c.List)).Methods(http.MethodGet)
	router.HandleFunc("/organizations/{id}", c.instrumentAPI("get", c.Get)).Methods(http.MethodGet)
}

func (c *SyncAPIController) TriggerSync(w http.ResponseWriter, r *http.Request) {
	result, err := c.sync.Sync(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, services.ErrSyncInProgress):
			writeJSON(w, http.StatusConflict, c.sync.Status(r.Context()))
		case errors.Is(err, services.ErrSourceUnavailable):
			govorgSyncRuns.WithLabelValues("unavailable").Inc()
			writeAPIError(w, http.StatusServiceUnavailable, "GOVORG_SOURCE_UNAVAILABLE", "federal register is not reachable")
		default:
			govorgSyncRuns.WithLabelValues("failed").Inc()
			c.app.Logger().WithError(err).Error("sync failed")
			writeAPIError(w, http.StatusInternalServerError, "GOVORG_SYNC_FAILED", "synchronization failed")
		}
		return
	}

	govorgSyncRuns.WithLabelValues("completed").Inc()
	govorgSyncRecords.WithLabelValues("added").Add(float64(result.Added))
	govorgSyncRecords.WithLabelValues("updated").Add(float64(result.Updated))
	govorgSyncRecords.WithLabelValues("skipped").Add(float64(result.Skipped))
	govorgSyncRecords.WithLabelValues("failed").Add(float64(result.Failed))

	writeJSON(w, http.StatusOK, result)
}

func (c *SyncAPIController) SyncStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, c.sync.Status(r.Context()))
}

// csvPayload picks the upload source: the "file" field of a multipart form,
// or the raw request body for any other content type.
func csvPayload(r *http.Request, maxSize int64) (io.ReadCloser, error) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		return http.MaxBytesReader(nil, r.Body, maxSize), nil
	}
	if err := r.ParseMultipartForm(maxSize); err != nil {
		return nil, err
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, err
	}
	return file, nil
}

func (c *SyncAPIController) ImportCsv(w http.ResponseWriter, r *http.Request) {
	conf := configuration.Use()
	payload, err := csvPayload(r, conf.MaxUploadSize)
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, "GOVORG_INVALID_UPLOAD", "expected a csv body or a multipart form with a file field")
		return
	}
	defer func() { _ = payload.Close() }()

	var result *services.ImportResult
	err = composables.InTx(r.Context(), func(ctx context.Context) error {
		var importErr error
		result, importErr = c.importer.Import(ctx, payload)
		return importErr
	})
	if err != nil {
		c.app.Logger().WithError(err).Error("csv import failed")
		writeAPIError(w, http.StatusInternalServerError, "GOVORG_IMPORT_FAILED", "csv import failed")
		return
	}

	status := http.StatusOK
	if len(result.ValidationErrors) > 0 {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, result)
}

type resolveConflictRequest struct {
	Conflict   services.MergeConflict `json:"conflict"`
	Action     string                 `json:"action"`
	Fields     []string               `json:"fields,omitempty"`
	ResolvedBy string                 `json:"resolvedBy,omitempty"`
}

func (c *SyncAPIController) ResolveConflict(w http.ResponseWriter, r *http.Request) {
	var req resolveConflictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "GOVORG_INVALID_JSON", "invalid json")
		return
	}
	if req.Conflict.OrgID == uuid.Nil {
		writeAPIError(w, http.StatusBadRequest, "GOVORG_MISSING_CONFLICT", "conflict payload is required")
		return
	}

	resolvedBy := req.ResolvedBy
	if resolvedBy == "" {
		resolvedBy = "operator"
	}

	var resolved *organization.Organization
	err := composables.InTx(r.Context(), func(ctx context.Context) error {
		var resolveErr error
		resolved, resolveErr = c.resolver.Resolve(ctx, &req.Conflict, services.Resolution{
			OrgID:  req.Conflict.OrgID,
			Action: req.Action,
			Fields: req.Fields,
		}, resolvedBy)
		return resolveErr
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUnknownAction):
			writeAPIError(w, http.StatusBadRequest, "GOVORG_UNKNOWN_ACTION", "action must be one of: keep-existing, use-incoming, merge-fields")
		case errors.Is(err, organization.ErrNotFound):
			writeAPIError(w, http.StatusNotFound, "GOVORG_NOT_FOUND", "organization not found")
		default:
			c.app.Logger().WithError(err).Error("conflict resolution failed")
			writeAPIError(w, http.StatusInternalServerError, "GOVORG_RESOLVE_FAILED", "conflict resolution failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, resolved.Snapshot())
}

func (c *SyncAPIController) List(w http.ResponseWriter, r *http.Request) {
	orgs, err := c.repo.GetAll(r.Context())
	if err != nil {
		c.app.Logger().WithError(err).Error("list organizations failed")
		writeAPIError(w, http.StatusInternalServerError, "GOVORG_INTERNAL", "internal error")
		return
	}

	out := make([]organization.Snapshot, 0, len(orgs))
	for _, org := range orgs {
		out = append(out, org.Snapshot())
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (c *SyncAPIController) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, "GOVORG_INVALID_ID", "invalid organization id")
		return
	}

	org, err := c.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, organization.ErrNotFound) {
			writeAPIError(w, http.StatusNotFound, "GOVORG_NOT_FOUND", "organization not found")
			return
		}
		c.app.Logger().WithError(err).Error("get organization failed")
		writeAPIError(w, http.StatusInternalServerError, "GOVORG_INTERNAL", "internal error")
		return
	}

	writeJSON(w, http.StatusOK, org.Snapshot())
}
