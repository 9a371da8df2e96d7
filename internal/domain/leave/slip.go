package leave

import (
	"bytes"
	"context"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"ems/internal/domain/auth"
)

// Slip renders an approved request as a one page PDF.
func (s *Service) Slip(ctx context.Context, actor auth.Actor, id string) ([]byte, error) {
	req, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if req.Status != StatusApproved {
		return nil, ErrNotApproved
	}
	return RenderSlip(req)
}

func RenderSlip(req Request) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Leave Slip")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	line := func(label, value string) {
		pdf.Cell(50, 8, label)
		pdf.Cell(120, 8, value)
		pdf.Ln(8)
	}
	line("Employee:", fmt.Sprintf("%s (%s)", req.EmployeeName, req.EmployeeNumber))
	line("Leave type:", string(req.LeaveType))
	line("From:", req.StartDate.Format("2006-01-02"))
	line("To:", req.EndDate.Format("2006-01-02"))
	line("Total days:", fmt.Sprintf("%d", req.TotalDays))
	line("Filed:", req.DateFiled.Format("2006-01-02"))
	if req.DateProcessed != nil {
		line("Approved:", req.DateProcessed.Format("2006-01-02"))
	}
	pdf.Ln(4)
	pdf.SetFont("Helvetica", "I", 11)
	pdf.MultiCell(170, 6, "Reason: "+req.Reason, "", "L", false)
	if req.Remarks != "" {
		pdf.MultiCell(170, 6, "Remarks: "+req.Remarks, "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
