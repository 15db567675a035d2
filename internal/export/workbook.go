package export

import (
	"fmt"
	"io"
	"time"

	"github.com/hrdesk/apiserver/types"
	"github.com/xuri/excelize/v2"
)

// AttendanceSheet is the sheet name of the attendance report workbook.
const AttendanceSheet = "Attendance"

var attendanceHeader = []any{
	"Employee ID", "Name", "Position", "Department", "Days Present", "Days Late", "Days Absent",
}

// AttendanceReportFilename names the workbook of one month.
func AttendanceReportFilename(year int, month time.Month) string {
	return fmt.Sprintf("attendance_%04d_%02d.xlsx", year, int(month))
}

// WriteAttendanceReport writes the monthly attendance report as an xlsx
// workbook to w.
func WriteAttendanceReport(w io.Writer, year int, month time.Month, rows []types.AttendanceReportRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), AttendanceSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	title := fmt.Sprintf("Attendance report %s %d", month, year)
	if err := f.SetCellValue(AttendanceSheet, "A1", title); err != nil {
		return err
	}
	header := append([]any(nil), attendanceHeader...)
	if err := f.SetSheetRow(AttendanceSheet, "A2", &header); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(attendanceHeader), 2)
	if err := f.SetCellStyle(AttendanceSheet, "A1", lastHeader, bold); err != nil {
		return err
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+3)
		if err != nil {
			return err
		}
		values := []any{
			row.EmployeeCode,
			row.EmployeeName,
			row.Position,
			row.DepartmentName,
			row.DaysPresent,
			row.DaysLate,
			row.DaysAbsent,
		}
		if err := f.SetSheetRow(AttendanceSheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}

	if err := f.SetColWidth(AttendanceSheet, "A", "D", 22); err != nil {
		return err
	}
	return f.Write(w)
}
