package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/sma-roster-api/internal/models"
	"github.com/noah-isme/sma-roster-api/internal/repository"
	"github.com/noah-isme/sma-roster-api/pkg/config"
	appErrors "github.com/noah-isme/sma-roster-api/pkg/errors"
)

type rowNormalizer interface {
	Normalize(ctx context.Context, row models.ImportRow) (models.NormalizedRow, error)
}

type reconciliationStaffStore interface {
	FindByHandles(ctx context.Context, handles []string) ([]models.StaffRecord, error)
	SaveBatch(ctx context.Context, batch repository.StaffBatch) error
}

type classKeyResolver interface {
	Resolve(ctx context.Context, schoolID int64, rows []models.NormalizedRow) (map[models.ClassKey]*models.Class, map[models.ClassKey]error)
}

type credentialMinter interface {
	GeneratePassword() (string, error)
	HashPassword(password string) (string, error)
}

type credentialNotifier interface {
	NotifyCredential(schoolID int64, cred models.NewCredential)
}

// ReconciliationService resolves an uploaded roster against the existing
// staff population. Rows that name the same person are folded together,
// existing records are merged idempotently, and everything the batch decides
// to write is committed in one transaction.
type ReconciliationService struct {
	normalizer  rowNormalizer
	staff       reconciliationStaffStore
	classes     classKeyResolver
	credentials credentialMinter
	notifier    credentialNotifier
	metrics     *MetricsService
	logger      *zap.Logger
	cfg         config.ImportConfig
}

// NewReconciliationService constructs a ReconciliationService. notifier and
// metrics may be nil.
func NewReconciliationService(
	normalizer rowNormalizer,
	staff reconciliationStaffStore,
	classes classKeyResolver,
	credentials credentialMinter,
	notifier credentialNotifier,
	metrics *MetricsService,
	logger *zap.Logger,
	cfg config.ImportConfig,
) *ReconciliationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = 2000
	}
	if cfg.NormalizeWorkers <= 0 {
		cfg.NormalizeWorkers = 8
	}
	return &ReconciliationService{
		normalizer:  normalizer,
		staff:       staff,
		classes:     classes,
		credentials: credentials,
		notifier:    notifier,
		metrics:     metrics,
		logger:      logger,
		cfg:         cfg,
	}
}

// classRef ties a class tuple back to the sheet row that introduced it so
// resolution failures can be attributed.
type classRef struct {
	key       models.ClassKey
	rowNumber int
}

// personDraft is one logical person after folding duplicate-handle rows.
type personDraft struct {
	row       models.NormalizedRow
	classRefs []classRef
}

// Reconcile processes one import batch for a school. Row-level problems are
// reported in the manifest and never abort sibling rows; only a storage
// failure aborts the whole batch.
func (s *ReconciliationService) Reconcile(ctx context.Context, schoolID int64, rows []models.ImportRow) (*models.ReconciliationManifest, error) {
	if len(rows) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "import batch is empty")
	}
	if len(rows) > s.cfg.MaxRows {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("import batch exceeds %d rows", s.cfg.MaxRows))
	}

	normalized, failures := s.normalizeAll(ctx, rows)
	drafts, order, conflictFailures := partitionByHandle(normalized)
	failures = append(failures, conflictFailures...)

	resolved, unresolved := s.classes.Resolve(ctx, schoolID, normalized)

	existing, err := s.staff.FindByHandles(ctx, order)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load existing staff")
	}
	byHandle := make(map[string]*models.StaffRecord, len(existing))
	for i := range existing {
		byHandle[existing[i].Handle] = &existing[i]
	}

	manifest := &models.ReconciliationManifest{SchoolID: schoolID}
	batch := repository.StaffBatch{PhoneBackfills: map[string]string{}}

	for _, handle := range order {
		draft := drafts[handle]
		manifest.SplitterTokens += draft.row.SplitterTokens

		classes, classFailures := draft.resolveClasses(schoolID, resolved, unresolved)
		failures = append(failures, classFailures...)

		if record, ok := byHandle[handle]; ok {
			s.mergeExisting(schoolID, record, draft, classes, &batch)
			manifest.Updated++
			manifest.Rows = append(manifest.Rows, models.RowResult{
				RowNumber: draft.row.RowNumber,
				Handle:    handle,
				StaffID:   record.ID,
				Outcome:   models.RowMatchedExisting,
			})
			continue
		}

		record, cred, err := s.buildNew(schoolID, draft, classes)
		if err != nil {
			failures = append(failures, models.RowFailure{
				RowNumber: draft.row.RowNumber,
				Handle:    handle,
				Code:      appErrors.FromError(err).Code,
				Reason:    appErrors.FromError(err).Message,
			})
			continue
		}
		batch.NewStaff = append(batch.NewStaff, *record)
		manifest.Created++
		manifest.Rows = append(manifest.Rows, models.RowResult{
			RowNumber: draft.row.RowNumber,
			Handle:    handle,
			StaffID:   record.ID,
			Outcome:   models.RowCreatedNew,
		})
		manifest.Credentials = append(manifest.Credentials, cred)
	}

	if err := s.staff.SaveBatch(ctx, batch); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "commit import batch")
	}

	manifest.Failures = failures
	if s.notifier != nil {
		for _, cred := range manifest.Credentials {
			s.notifier.NotifyCredential(schoolID, cred)
		}
	}
	s.metrics.RecordImport(manifest.Created, manifest.Updated, len(failures), manifest.SplitterTokens)

	s.logger.Info("import batch reconciled",
		zap.Int64("school_id", schoolID),
		zap.Int("created", manifest.Created),
		zap.Int("updated", manifest.Updated),
		zap.Int("failed", len(failures)),
		zap.Int("splitter_tokens", manifest.SplitterTokens))

	return manifest, nil
}

// normalizeAll runs row normalization across a bounded worker group. Results
// keep their input positions so batch order is stable regardless of
// scheduling.
func (s *ReconciliationService) normalizeAll(ctx context.Context, rows []models.ImportRow) ([]models.NormalizedRow, []models.RowFailure) {
	results := make([]models.NormalizedRow, len(rows))
	errs := make([]error, len(rows))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.NormalizeWorkers)
	for i := range rows {
		i := i
		g.Go(func() error {
			results[i], errs[i] = s.normalizer.Normalize(gctx, rows[i])
			return nil
		})
	}
	_ = g.Wait()

	var ok []models.NormalizedRow
	var failures []models.RowFailure
	for i, err := range errs {
		if err != nil {
			typed := appErrors.FromError(err)
			failures = append(failures, models.RowFailure{
				RowNumber: rows[i].RowNumber,
				Handle:    results[i].Handle,
				Code:      typed.Code,
				Reason:    typed.Message,
			})
			continue
		}
		ok = append(ok, results[i])
	}
	return ok, failures
}

// partitionByHandle folds rows sharing a canonical handle into one draft per
// person. The first row supplies identity; later rows fill blanks and add
// class signals. A later row whose name openly contradicts the draft is
// excluded from the batch entirely; none of its fields fold into the draft.
func partitionByHandle(rows []models.NormalizedRow) (map[string]*personDraft, []string, []models.RowFailure) {
	drafts := make(map[string]*personDraft)
	var order []string
	var failures []models.RowFailure

	for _, row := range rows {
		draft, ok := drafts[row.Handle]
		if !ok {
			draft = &personDraft{row: row}
			draft.addClassSignal(row)
			drafts[row.Handle] = draft
			order = append(order, row.Handle)
			continue
		}

		if conflictingName(draft.row, row) {
			failures = append(failures, models.RowFailure{
				RowNumber: row.RowNumber,
				Handle:    row.Handle,
				Code:      appErrors.ErrRowConflict.Code,
				Reason:    fmt.Sprintf("row names %s %s but an earlier row claimed this handle for %s %s", row.FirstName, row.LastName, draft.row.FirstName, draft.row.LastName),
			})
			continue
		}

		if draft.row.FirstName == "" {
			draft.row.FirstName = row.FirstName
		}
		if draft.row.LastName == "" {
			draft.row.LastName = row.LastName
		}
		if draft.row.Gender == models.GenderUnspecified {
			draft.row.Gender = row.Gender
		}
		if draft.row.Phone == "" {
			draft.row.Phone = row.Phone
		}
		draft.row.SplitterTokens += row.SplitterTokens
		draft.addClassSignal(row)
	}

	return drafts, order, failures
}

func conflictingName(a, b models.NormalizedRow) bool {
	return a.FirstName != "" && b.FirstName != "" && a.FirstName != b.FirstName ||
		a.LastName != "" && b.LastName != "" && a.LastName != b.LastName
}

func (d *personDraft) addClassSignal(row models.NormalizedRow) {
	if !row.HasClassSignal {
		return
	}
	for _, ref := range d.classRefs {
		if ref.key.Grade == row.Grade && ref.key.ClassIndex == row.ClassIndex {
			return
		}
	}
	d.classRefs = append(d.classRefs, classRef{
		key:       models.ClassKey{Grade: row.Grade, ClassIndex: row.ClassIndex},
		rowNumber: row.RowNumber,
	})
}

// resolveClasses maps the draft's tuples to class records. Tuples whose
// resolution failed become row failures; the person is still processed with
// the assignments that did resolve.
func (d *personDraft) resolveClasses(schoolID int64, resolved map[models.ClassKey]*models.Class, unresolved map[models.ClassKey]error) ([]*models.Class, []models.RowFailure) {
	var classes []*models.Class
	var failures []models.RowFailure
	for _, ref := range d.classRefs {
		key := models.ClassKey{SchoolID: schoolID, Grade: ref.key.Grade, ClassIndex: ref.key.ClassIndex}
		if class, ok := resolved[key]; ok {
			classes = append(classes, class)
			continue
		}
		if err, ok := unresolved[key]; ok {
			typed := appErrors.FromError(err)
			failures = append(failures, models.RowFailure{
				RowNumber: ref.rowNumber,
				Handle:    d.row.Handle,
				Code:      typed.Code,
				Reason:    typed.Message,
			})
		}
	}
	return classes, failures
}

// mergeExisting computes the incremental edges a matched record needs. The
// merge is idempotent: edges the record already carries are skipped, names
// and gender are never overwritten, and the phone is backfill-only.
func (s *ReconciliationService) mergeExisting(schoolID int64, record *models.StaffRecord, draft *personDraft, classes []*models.Class, batch *repository.StaffBatch) {
	if !record.AffiliatedWith(schoolID) {
		batch.Affiliations = append(batch.Affiliations, models.Affiliation{
			SchoolID: schoolID,
			StaffID:  record.ID,
			RoleID:   models.RoleTeacher,
		})
	}

	for _, class := range classes {
		if record.HasAssignment(schoolID, class.Grade, class.ClassIndex) {
			continue
		}
		assignment := models.ClassAssignment{
			StaffID:    record.ID,
			ClassID:    class.ID,
			SchoolID:   schoolID,
			Grade:      class.Grade,
			ClassIndex: class.ClassIndex,
		}
		batch.ClassAssignments = append(batch.ClassAssignments, assignment)
		// Keep the in-memory record current so a duplicate tuple later in
		// the same batch does not produce a second edge.
		record.ClassAssignments = append(record.ClassAssignments, assignment)
	}

	phone := draft.row.Phone
	if phone != "" && (record.Phone == nil || *record.Phone == "") {
		batch.PhoneBackfills[record.ID] = phone
	}
}

// buildNew assembles a brand new record with its credential and owned edges.
func (s *ReconciliationService) buildNew(schoolID int64, draft *personDraft, classes []*models.Class) (*models.StaffRecord, models.NewCredential, error) {
	password, err := s.credentials.GeneratePassword()
	if err != nil {
		return nil, models.NewCredential{}, err
	}
	hash, err := s.credentials.HashPassword(password)
	if err != nil {
		return nil, models.NewCredential{}, err
	}

	record := &models.StaffRecord{
		ID:           uuid.NewString(),
		Handle:       draft.row.Handle,
		FirstName:    draft.row.FirstName,
		LastName:     draft.row.LastName,
		Gender:       draft.row.Gender,
		PasswordHash: &hash,
		Affiliations: []models.Affiliation{
			{SchoolID: schoolID, RoleID: models.RoleTeacher},
		},
	}
	if draft.row.Phone != "" {
		phone := draft.row.Phone
		record.Phone = &phone
	}
	for _, class := range classes {
		record.ClassAssignments = append(record.ClassAssignments, models.ClassAssignment{
			ClassID:    class.ID,
			SchoolID:   schoolID,
			Grade:      class.Grade,
			ClassIndex: class.ClassIndex,
		})
	}

	cred := models.NewCredential{
		StaffID:  record.ID,
		Handle:   record.Handle,
		FullName: record.FullName(),
		Password: password,
	}
	return record, cred, nil
}
