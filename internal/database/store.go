package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JashanChopra/Summit/internal/standards"
)

// Batch size for inserts and IN (...) lists; stays well under SQLite's
// bound-parameter limit.
const batchSize = 500

// FilesByName returns every registered file with the given base name, oldest first
func (s *Store) FilesByName(ctx context.Context, name string) ([]DataFile, error) {
	var files []DataFile
	if err := s.db.WithContext(ctx).Where("name = ?", name).Order("id").Find(&files).Error; err != nil {
		return nil, fmt.Errorf("query files by name: %w", err)
	}
	return files, nil
}

// UnprocessedFiles returns registered files still awaiting ingestion
func (s *Store) UnprocessedFiles(ctx context.Context) ([]DataFile, error) {
	var files []DataFile
	if err := s.db.WithContext(ctx).Where("processed = ?", false).Order("id").Find(&files).Error; err != nil {
		return nil, fmt.Errorf("query unprocessed files: %w", err)
	}
	return files, nil
}

// RegisterFile registers a newly discovered file
func (s *Store) RegisterFile(ctx context.Context, f *DataFile) error {
	if err := s.db.WithContext(ctx).Create(f).Error; err != nil {
		return fmt.Errorf("register file %s: %w", f.Path, err)
	}
	return nil
}

// SaveFile persists size and processed-flag changes of a registered file
func (s *Store) SaveFile(ctx context.Context, f *DataFile) error {
	err := s.db.WithContext(ctx).Model(&DataFile{}).Where("id = ?", f.ID).
		Updates(map[string]interface{}{"size": f.Size, "processed": f.Processed}).Error
	if err != nil {
		return fmt.Errorf("update file %s: %w", f.Path, err)
	}
	return nil
}

// ExistingEpochs returns the stored timestamps within [fromMs, toMs]
func (s *Store) ExistingEpochs(ctx context.Context, fromMs, toMs int64) (map[int64]struct{}, error) {
	var epochs []int64
	err := s.db.WithContext(ctx).Model(&Datum{}).
		Where("epoch_ms BETWEEN ? AND ?", fromMs, toMs).
		Pluck("epoch_ms", &epochs).Error
	if err != nil {
		return nil, fmt.Errorf("query existing timestamps: %w", err)
	}

	existing := make(map[int64]struct{}, len(epochs))
	for _, e := range epochs {
		existing[e] = struct{}{}
	}
	return existing, nil
}

// InsertData stores measurements, silently skipping timestamps that already
// exist. It returns the number of rows actually inserted.
func (s *Store) InsertData(ctx context.Context, data []Datum) (int64, error) {
	if len(data) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "epoch_ms"}}, DoNothing: true}).
		CreateInBatches(&data, batchSize)
	if res.Error != nil {
		return 0, fmt.Errorf("insert data: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// UnassignedData returns measurements taken at a valve position that are
// not yet part of any calibration event, ordered by time
func (s *Store) UnassignedData(ctx context.Context, valve int) ([]Datum, error) {
	var data []Datum
	err := s.db.WithContext(ctx).
		Where("mpv_position = ? AND cal_id IS NULL", valve).
		Order("epoch_ms").
		Find(&data).Error
	if err != nil {
		return nil, fmt.Errorf("query unassigned data for valve %d: %w", valve, err)
	}
	return data, nil
}

// LatestEpoch returns the newest stored measurement timestamp. ok is false
// when the store holds no data.
func (s *Store) LatestEpoch(ctx context.Context) (epochMs int64, ok bool, err error) {
	var latest sql.NullInt64
	if err := s.db.WithContext(ctx).Model(&Datum{}).Select("MAX(epoch_ms)").Row().Scan(&latest); err != nil {
		return 0, false, fmt.Errorf("query latest timestamp: %w", err)
	}
	return latest.Int64, latest.Valid, nil
}

// DataForEvent returns the member measurements of a calibration event, ordered by time
func (s *Store) DataForEvent(ctx context.Context, calID uint) ([]Datum, error) {
	var data []Datum
	if err := s.db.WithContext(ctx).Where("cal_id = ?", calID).Order("epoch_ms").Find(&data).Error; err != nil {
		return nil, fmt.Errorf("query data for event %d: %w", calID, err)
	}
	return data, nil
}

// CreateCalEvent stores a new calibration event and links its member
// measurements to it. Measurements already linked to another event are
// never reassigned; finding one is an error.
func (s *Store) CreateCalEvent(ctx context.Context, ev *CalEvent, datumIDs []uint) error {
	db := s.db.WithContext(ctx)
	if err := db.Create(ev).Error; err != nil {
		return fmt.Errorf("create calibration event: %w", err)
	}

	var linked int64
	for start := 0; start < len(datumIDs); start += batchSize {
		end := min(start+batchSize, len(datumIDs))
		res := db.Model(&Datum{}).
			Where("id IN ? AND cal_id IS NULL", datumIDs[start:end]).
			Update("cal_id", ev.ID)
		if res.Error != nil {
			return fmt.Errorf("link data to event %d: %w", ev.ID, res.Error)
		}
		linked += res.RowsAffected
	}

	if linked != int64(len(datumIDs)) {
		return fmt.Errorf("event %d: linked %d of %d measurements; some already belong to another event", ev.ID, linked, len(datumIDs))
	}
	return nil
}

// PendingCalEvents returns events of a category not yet part of a master
// calibration, ordered by end time
func (s *Store) PendingCalEvents(ctx context.Context, cat standards.Category) ([]CalEvent, error) {
	var events []CalEvent
	err := s.db.WithContext(ctx).
		Where("standard_used = ? AND mastercal_id IS NULL", cat).
		Order("epoch_ms, id").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("query pending %s events: %w", cat, err)
	}
	return events, nil
}

// GetCalEvent fetches an event by id. It returns nil when no event matches.
func (s *Store) GetCalEvent(ctx context.Context, id uint) (*CalEvent, error) {
	var ev CalEvent
	err := s.db.WithContext(ctx).First(&ev, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get event %d: %w", id, err)
	}
	return &ev, nil
}

// CreateMasterCal stores a master calibration and links its three events.
// Each event may belong to one master calibration only.
func (s *Store) CreateMasterCal(ctx context.Context, mc *MasterCal) error {
	db := s.db.WithContext(ctx)
	if err := db.Create(mc).Error; err != nil {
		return fmt.Errorf("create master calibration: %w", err)
	}

	ids := []uint{mc.LowCalID, mc.HighCalID, mc.MidCalID}
	res := db.Model(&CalEvent{}).
		Where("id IN ? AND mastercal_id IS NULL", ids).
		Update("mastercal_id", mc.ID)
	if res.Error != nil {
		return fmt.Errorf("link events to master calibration %d: %w", mc.ID, res.Error)
	}
	if res.RowsAffected != int64(len(ids)) {
		return fmt.Errorf("master calibration %d: linked %d of %d events", mc.ID, res.RowsAffected, len(ids))
	}
	return nil
}

// UnfittedMasterCals returns master calibrations whose curves are not yet computed
func (s *Store) UnfittedMasterCals(ctx context.Context) ([]MasterCal, error) {
	var mcs []MasterCal
	if err := s.db.WithContext(ctx).Where("fitted = ?", false).Order("epoch_ms, id").Find(&mcs).Error; err != nil {
		return nil, fmt.Errorf("query unfitted master calibrations: %w", err)
	}
	return mcs, nil
}

// SaveMasterCalCurve persists the fitted curves and fitted flag of a master calibration
func (s *Store) SaveMasterCalCurve(ctx context.Context, mc *MasterCal) error {
	if err := s.db.WithContext(ctx).Save(mc).Error; err != nil {
		return fmt.Errorf("save master calibration %d: %w", mc.ID, err)
	}
	return nil
}

// GetMasterCal fetches a master calibration by id. It returns nil when none matches.
func (s *Store) GetMasterCal(ctx context.Context, id uint) (*MasterCal, error) {
	var mc MasterCal
	err := s.db.WithContext(ctx).First(&mc, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get master calibration %d: %w", id, err)
	}
	return &mc, nil
}

// UnflushedCalEvents returns finalized events whose post-calibration
// ambient data has not been filtered yet, ordered by end time
func (s *Store) UnflushedCalEvents(ctx context.Context) ([]CalEvent, error) {
	var events []CalEvent
	if err := s.db.WithContext(ctx).Where("flushed = ?", false).Order("epoch_ms, id").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("query unflushed events: %w", err)
	}
	return events, nil
}

// FlagFlushData sets the flush sentinel status on ambient measurements in
// the half-open interval (afterMs, untilMs]. It returns the number of rows flagged.
func (s *Store) FlagFlushData(ctx context.Context, afterMs, untilMs int64) (int64, error) {
	res := s.db.WithContext(ctx).Model(&Datum{}).
		Where("mpv_position = ? AND epoch_ms > ? AND epoch_ms <= ?", standards.Ambient.Valve(), afterMs, untilMs).
		Update("instrument_status", standards.StatusFlushed)
	if res.Error != nil {
		return 0, fmt.Errorf("flag flush data: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// MarkFlushed records that an event's flush window has been filtered
func (s *Store) MarkFlushed(ctx context.Context, calID uint) error {
	if err := s.db.WithContext(ctx).Model(&CalEvent{}).Where("id = ?", calID).Update("flushed", true).Error; err != nil {
		return fmt.Errorf("mark event %d flushed: %w", calID, err)
	}
	return nil
}

// ListFiles returns every registered file, newest registration first
func (s *Store) ListFiles(ctx context.Context) ([]DataFile, error) {
	var files []DataFile
	if err := s.db.WithContext(ctx).Order("id DESC").Find(&files).Error; err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	return files, nil
}

// ListCalEvents returns events, newest first. An empty category lists all
// categories; a non-positive limit returns everything.
func (s *Store) ListCalEvents(ctx context.Context, cat standards.Category, limit int) ([]CalEvent, error) {
	q := s.db.WithContext(ctx).Order("epoch_ms DESC, id DESC")
	if cat != "" {
		q = q.Where("standard_used = ?", cat)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var events []CalEvent
	if err := q.Find(&events).Error; err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// ListMasterCals returns master calibrations, newest first
func (s *Store) ListMasterCals(ctx context.Context, limit int) ([]MasterCal, error) {
	q := s.db.WithContext(ctx).Order("epoch_ms DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var mcs []MasterCal
	if err := q.Find(&mcs).Error; err != nil {
		return nil, fmt.Errorf("list master calibrations: %w", err)
	}
	return mcs, nil
}

// Counts summarizes the contents of the store
type Counts struct {
	Files         int64 `json:"files"`
	PendingFiles  int64 `json:"pending_files"`
	Data          int64 `json:"data"`
	FlushedData   int64 `json:"flushed_data"`
	CalEvents     int64 `json:"cal_events"`
	DumpedEvents  int64 `json:"dumped_events"`
	PendingEvents int64 `json:"pending_events"`
	MasterCals    int64 `json:"master_cals"`
	LatestEpochMs int64 `json:"latest_ts,omitempty"`
}

// Counts returns row counts for every entity
func (s *Store) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	db := s.db.WithContext(ctx)

	queries := []struct {
		target *int64
		query  *gorm.DB
	}{
		{&c.Files, db.Model(&DataFile{})},
		{&c.PendingFiles, db.Model(&DataFile{}).Where("processed = ?", false)},
		{&c.Data, db.Model(&Datum{})},
		{&c.FlushedData, db.Model(&Datum{}).Where("instrument_status = ?", standards.StatusFlushed)},
		{&c.CalEvents, db.Model(&CalEvent{})},
		{&c.DumpedEvents, db.Model(&CalEvent{}).Where("standard_used = ?", standards.Dump)},
		{&c.PendingEvents, db.Model(&CalEvent{}).Where("standard_used <> ? AND mastercal_id IS NULL", standards.Dump)},
		{&c.MasterCals, db.Model(&MasterCal{})},
	}
	for _, q := range queries {
		if err := q.query.Count(q.target).Error; err != nil {
			return Counts{}, fmt.Errorf("count rows: %w", err)
		}
	}

	latest, ok, err := s.LatestEpoch(ctx)
	if err != nil {
		return Counts{}, err
	}
	if ok {
		c.LatestEpochMs = latest
	}
	return c, nil
}
