package services

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

var (
	ErrInvalidSignature = errors.New("invalid signature")
	ErrInvalidExport    = errors.New("invalid export data")
)

type ReportExport struct {
	FarmID       uint                `json:"farm_id"`
	RegistryCode string              `json:"registry_code"`
	FarmName     string              `json:"farm_name"`
	OwnerID      string              `json:"owner_id"`
	ProducerName string              `json:"producer_name,omitempty"`
	Report       FarmReport          `json:"report"`
	Images       []ReportExportImage `json:"images"`
	ExportedAt   time.Time           `json:"exported_at"`
	Signature    string              `json:"signature"`
}

type ReportExportImage struct {
	ID           uint      `json:"id"`
	OriginalName string    `json:"original_name"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	Anomalous    bool      `json:"anomalous"`
	UploadedBy   string    `json:"uploaded_by"`
	CreatedAt    time.Time `json:"created_at"`
}

type ExportService struct {
	reports    *ReportService
	signingKey string
}

func NewExportService(reports *ReportService, signingKey string) *ExportService {
	return &ExportService{
		reports:    reports,
		signingKey: signingKey,
	}
}

// ExportReport builds a signed snapshot of the farm's report and images.
func (s *ExportService) ExportReport(farmID uint, callerID string, path AccessPath) (*ReportExport, error) {
	detail, err := s.reports.GetFarmDetail(farmID, callerID, path)
	if err != nil {
		return nil, err
	}

	var anomalous int64
	images := make([]ReportExportImage, len(detail.Images))
	for i, img := range detail.Images {
		flagged := img.Verdict != nil && img.Verdict.Anomalous
		if flagged {
			anomalous++
		}
		images[i] = ReportExportImage{
			ID:           img.ID,
			OriginalName: img.OriginalName,
			Latitude:     img.Latitude,
			Longitude:    img.Longitude,
			Anomalous:    flagged,
			UploadedBy:   img.UploadedBy,
			CreatedAt:    img.CreatedAt,
		}
	}

	export := &ReportExport{
		FarmID:       detail.Farm.ID,
		RegistryCode: detail.Farm.RegistryCode,
		FarmName:     detail.Farm.Name,
		OwnerID:      detail.Farm.OwnerID,
		ProducerName: detail.ProducerName,
		Report:       NewFarmReport(detail.Farm.ID, int64(len(images)), anomalous),
		Images:       images,
		ExportedAt:   time.Now().UTC(),
	}

	signature, err := s.signExport(export)
	if err != nil {
		return nil, err
	}
	export.Signature = signature

	return export, nil
}

func (s *ExportService) VerifyExportData(exportData *ReportExport) (bool, error) {
	if exportData == nil || exportData.Signature == "" {
		return false, ErrInvalidExport
	}

	computedSignature, err := s.signExport(exportData)
	if err != nil {
		return false, err
	}

	return hmac.Equal([]byte(computedSignature), []byte(exportData.Signature)), nil
}

// ExportWorkbook renders the same snapshot as a spreadsheet with a summary
// sheet and one row per image.
func (s *ExportService) ExportWorkbook(farmID uint, callerID string, path AccessPath) (*bytes.Buffer, error) {
	export, err := s.ExportReport(farmID, callerID, path)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	const summary, imagesSheet = "Report", "Images"
	if err := f.SetSheetName("Sheet1", summary); err != nil {
		return nil, err
	}

	rows := [][]interface{}{
		{"Farm", export.FarmName},
		{"Registry code", export.RegistryCode},
		{"Owner", export.OwnerID},
		{"Producer", export.ProducerName},
		{"Total images", export.Report.Total},
		{"Anomalous", export.Report.Anomalous},
		{"Normal", export.Report.Normal},
		{"Anomaly %", export.Report.AnomalyPercentage},
		{"Status", string(export.Report.Status)},
		{"Exported at", export.ExportedAt.Format(time.RFC3339)},
		{"Signature", export.Signature},
	}
	if err := writeRows(f, summary, rows); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet(imagesSheet); err != nil {
		return nil, err
	}
	imageRows := [][]interface{}{{"ID", "File", "Latitude", "Longitude", "Anomalous", "Uploaded by", "Uploaded at"}}
	for _, img := range export.Images {
		imageRows = append(imageRows, []interface{}{
			img.ID, img.OriginalName, img.Latitude, img.Longitude, img.Anomalous, img.UploadedBy,
			img.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	if err := writeRows(f, imagesSheet, imageRows); err != nil {
		return nil, err
	}

	return f.WriteToBuffer()
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func (s *ExportService) signExport(export *ReportExport) (string, error) {
	exportCopy := *export
	exportCopy.Signature = ""

	data, err := json.Marshal(exportCopy)
	if err != nil {
		return "", err
	}

	h := hmac.New(sha256.New, []byte(s.signingKey))
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}
