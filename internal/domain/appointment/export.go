package appointment

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/vitacare/portal/pkg/pagination"
)

const exportSheet = "Appointments"

var exportHeaders = []interface{}{
	"Date", "Time", "Doctor", "Specialization", "Hospital", "Type", "Status", "Fee", "Symptoms",
}

// Export writes all of the patient's appointments as an xlsx workbook.
func (s *Service) Export(ctx context.Context, patientID uuid.UUID, w io.Writer) error {
	var all []*Appointment
	p := pagination.Params{Limit: pagination.MaxLimit, Sort: pagination.Sort{Field: "appointment_date", Desc: true}}
	for {
		items, total, err := s.repo.ListByPatient(ctx, patientID, ListFilter{}, p)
		if err != nil {
			return err
		}
		all = append(all, items...)
		p.Offset += p.Limit
		if len(items) == 0 || p.Offset >= total {
			break
		}
	}
	return writeWorkbook(all, w)
}

func writeWorkbook(items []*Appointment, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeaders); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetRowStyle(exportSheet, 1, 1, bold); err != nil {
		return err
	}

	for i, a := range items {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			a.AppointmentDate, a.AppointmentTime, a.DoctorName, a.Specialization, a.HospitalName,
			a.AppointmentType, a.Status, a.ConsultationFee, a.Symptoms,
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(exportSheet, "A", "I", 18); err != nil {
		return err
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
