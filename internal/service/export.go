package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"merchant-phone-search/internal/config"
	"merchant-phone-search/internal/dto"
	"merchant-phone-search/internal/model"
	"merchant-phone-search/internal/repository"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	exportSheet    = "商家电话"
	ExportFilename = "商家电话搜索结果.xlsx"
)

var (
	ErrExportForbidden = errors.New("free membership has no export permission")
	ErrExportQuota     = errors.New("daily export quota exceeded")
	ErrNoExportData    = errors.New("no data to export")
)

type ExportService interface {
	// Export renders the records to an xlsx workbook, enforcing the
	// caller's tier permission and daily row quota.
	Export(ctx context.Context, userID string, records []dto.POIRecord) ([]byte, error)
}

type exportServiceImpl struct {
	userRepo repository.UserRepository
	cfg      config.Export
	now      func() time.Time
}

func NewExportService(userRepo repository.UserRepository, cfg *config.Export) ExportService {
	return &exportServiceImpl{
		userRepo: userRepo,
		cfg:      *cfg,
		now:      time.Now,
	}
}

func (s *exportServiceImpl) Export(ctx context.Context, userID string, records []dto.POIRecord) ([]byte, error) {
	if len(records) == 0 {
		return nil, ErrNoExportData
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	now := s.now()
	tier := user.EffectiveTier(now)

	switch tier {
	case model.MembershipFree:
		return nil, ErrExportForbidden
	case model.MembershipStandard:
		// a stale counter is reset in storage before the quota check so the
		// increment below lands on the right day
		dayStart := model.StartOfDay(now)
		if err := s.userRepo.ResetExportCountIfStale(ctx, user.ID, dayStart); err != nil {
			return nil, fmt.Errorf("reset export counter: %w", err)
		}
		if user.EffectiveExportCount(now)+len(records) > s.cfg.StandardDailyLimit {
			return nil, fmt.Errorf("%w: standard membership allows %d rows per day",
				ErrExportQuota, s.cfg.StandardDailyLimit)
		}
	case model.MembershipPremium:
		// no daily limit
	}

	data, err := buildWorkbook(records)
	if err != nil {
		return nil, fmt.Errorf("build workbook: %w", err)
	}

	if tier == model.MembershipStandard {
		if err := s.userRepo.IncrementExportCount(ctx, user.ID, len(records)); err != nil {
			return nil, fmt.Errorf("update export counter: %w", err)
		}
	}

	return data, nil
}

func buildWorkbook(records []dto.POIRecord) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(exportSheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	header := []interface{}{"名称", "地址", "电话", "商圈", "类型"}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return nil, err
	}

	for i, record := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []interface{}{
			record.Name,
			record.Address,
			record.Phone,
			record.BusinessArea,
			record.Type,
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
