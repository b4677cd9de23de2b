package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/employee-requests/internal/application/port"
	"github.com/garyjia/employee-requests/internal/domain/requests"
	"github.com/garyjia/employee-requests/internal/domain/workflow"
)

const sheetName = "Installments"

// InstallmentWorkbook writes cash advance repayment schedules as xlsx
type InstallmentWorkbook struct {
	logger *zap.Logger
}

// NewInstallmentWorkbook creates a new exporter
func NewInstallmentWorkbook(logger *zap.Logger) *InstallmentWorkbook {
	return &InstallmentWorkbook{logger: logger}
}

// ExportInstallments writes one row per installment plus a total row
func (w *InstallmentWorkbook) ExportInstallments(out io.Writer, req *workflow.Request) error {
	ca := req.Details.CashAdvance
	if req.Kind != workflow.KindCashAdvance || ca == nil || len(ca.Installments) == 0 {
		return fmt.Errorf("%w: request %d", port.ErrNoSchedule, req.ID)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}

	w.setCell(f, "A1", "Request")
	w.setCell(f, "B1", req.ID)
	w.setCell(f, "A2", "Employee")
	w.setCell(f, "B2", req.RequestedByID)
	w.setCell(f, "A3", "Status")
	w.setCell(f, "B3", string(req.Status))
	if ca.ApprovedAmount != nil {
		w.setCell(f, "A4", "Approved amount")
		w.setCell(f, "B4", ca.ApprovedAmount.StringFixed(2))
	}

	header := []interface{}{"#", "Due date", "Amount", "Paid"}
	if err := f.SetSheetRow(sheetName, "A6", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	row := 7
	for _, inst := range ca.Installments {
		paid := "no"
		if inst.IsPaid {
			paid = "yes"
		}
		values := []interface{}{inst.Sequence, inst.DueDate.Format("2006-01-02"), inst.Amount.StringFixed(2), paid}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return fmt.Errorf("failed to write installment %d: %w", inst.Sequence, err)
		}
		row++
	}

	totalLabel, _ := excelize.CoordinatesToCellName(2, row)
	totalCell, _ := excelize.CoordinatesToCellName(3, row)
	w.setCell(f, totalLabel, "Total")
	w.setCell(f, totalCell, requests.ScheduleTotal(ca.Installments).StringFixed(2))

	if _, err := f.WriteTo(out); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	w.logger.Info("Installment schedule exported",
		zap.Int64("request_id", req.ID),
		zap.Int("installments", len(ca.Installments)))
	return nil
}

func (w *InstallmentWorkbook) setCell(f *excelize.File, cell string, value interface{}) {
	if err := f.SetCellValue(sheetName, cell, value); err != nil {
		w.logger.Warn("Failed to set cell", zap.String("cell", cell), zap.Error(err))
	}
}

var _ port.InstallmentExporter = (*InstallmentWorkbook)(nil)
