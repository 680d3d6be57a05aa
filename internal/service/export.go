package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"swiftattend/internal/model"
)

const attendanceSheet = "Attendance"

var (
	attendanceHeader = []interface{}{"Name", "Email", "Student ID", "Backup Code", "Registered At", "Checked In At", "Method"}
	unsafeFilename   = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
)

// AttendanceExport is a rendered spreadsheet ready to be downloaded.
type AttendanceExport struct {
	Filename string
	Data     []byte
}

// ExportAttendance renders an event's registrations and check-ins as xlsx.
func ExportAttendance(ctx context.Context, events EventService, registrations RegistrationService, eventID uuid.UUID, loc *time.Location) (*AttendanceExport, error) {
	event, err := events.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	rows, err := registrations.ListForEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	data, err := renderAttendance(rows, loc)
	if err != nil {
		return nil, err
	}
	return &AttendanceExport{
		Filename: exportFilename(event),
		Data:     data,
	}, nil
}

func renderAttendance(rows []model.Registration, loc *time.Location) ([]byte, error) {
	if loc == nil {
		loc = time.UTC
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", attendanceSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(attendanceSheet, "A1", &attendanceHeader); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("create style: %w", err)
	}
	if err := f.SetRowStyle(attendanceSheet, 1, 1, bold); err != nil {
		return nil, fmt.Errorf("style header: %w", err)
	}
	if err := f.SetColWidth(attendanceSheet, "A", "G", 20); err != nil {
		return nil, fmt.Errorf("set widths: %w", err)
	}

	for i, reg := range rows {
		var name, email, studentID string
		if reg.User != nil {
			name, email, studentID = reg.User.Name, reg.User.Email, reg.User.StudentID
		}
		var checkedInAt, method string
		if reg.Attendance != nil {
			checkedInAt = reg.Attendance.CheckedInAt.In(loc).Format("2006-01-02 15:04:05")
			method = string(reg.Attendance.Method)
		}
		row := []interface{}{
			name,
			email,
			studentID,
			reg.BackupCode,
			reg.CreatedAt.In(loc).Format("2006-01-02 15:04:05"),
			checkedInAt,
			method,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(attendanceSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func exportFilename(event *model.Event) string {
	name := strings.Trim(unsafeFilename.ReplaceAllString(event.Name, "-"), "-")
	if name == "" {
		name = "event"
	}
	return fmt.Sprintf("%s-%s-attendance.xlsx", name, time.Time(event.Date).Format(dateLayout))
}
