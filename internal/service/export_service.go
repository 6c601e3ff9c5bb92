package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/krs-online-api/internal/models"
	appErrors "github.com/noah-isme/krs-online-api/pkg/errors"
	"github.com/noah-isme/krs-online-api/pkg/export"
)

// ExportFormat selects the rendered KRS card type.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

var cardHeaders = []string{"No", "Kode", "Mata Kuliah", "Kelas", "SKS", "Jadwal", "Ruangan", "Dosen", "Status"}

var cardWeights = []float64{1, 2, 5, 1.2, 1, 3.5, 2, 3.5, 2}

type cardEnrollmentReader interface {
	ListByStudent(ctx context.Context, studentID string, filter models.TermFilter) ([]models.EnrollmentDetail, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, doc export.Document) ([]byte, error)
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders the printable KRS card.
type ExportService struct {
	enrollments cardEnrollmentReader
	students    studentReader
	csv         csvRenderer
	pdf         pdfRenderer
	logger      *zap.Logger
}

// NewExportService constructs an ExportService. Nil renderers fall back to
// the package exporters.
func NewExportService(enrollments cardEnrollmentReader, students studentReader, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{enrollments: enrollments, students: students, csv: csv, pdf: pdf, logger: logger}
}

// ParseExportFormat accepts csv or pdf in any case; empty means pdf.
func ParseExportFormat(raw string) (ExportFormat, error) {
	switch ExportFormat(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ExportFormatPDF:
		return ExportFormatPDF, nil
	case ExportFormatCSV:
		return ExportFormatCSV, nil
	default:
		return "", appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}

// StudentCard renders a student's enrollments for one term, oldest first,
// with the term credit total as footer.
func (s *ExportService) StudentCard(ctx context.Context, studentID string, term models.Term, format ExportFormat) (*ExportFile, error) {
	term.Semester = strings.TrimSpace(term.Semester)
	term.AcademicYear = strings.TrimSpace(term.AcademicYear)
	if term.Semester == "" || term.AcademicYear == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "semester and tahunAjaran are required")
	}

	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	items, err := s.enrollments.ListByStudent(ctx, studentID, models.TermFilter{Semester: term.Semester, AcademicYear: term.AcademicYear})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}

	dataset := buildCardDataset(items)
	base := fmt.Sprintf("krs_%s_%s_%s", fileSafe(student.NIM), fileSafe(term.AcademicYear), fileSafe(term.Semester))

	switch format {
	case ExportFormatCSV:
		data, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportFile{Filename: base + ".csv", ContentType: "text/csv", Data: data}, nil
	case ExportFormatPDF:
		data, err := s.pdf.Render(dataset, cardDocument(student, term))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportFile{Filename: base + ".pdf", ContentType: "application/pdf", Data: data}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}

func buildCardDataset(items []models.EnrollmentDetail) export.Dataset {
	rows := make([]map[string]string, 0, len(items))
	total := 0
	// ListByStudent is newest first; the card lists in enrollment order.
	for i := len(items) - 1; i >= 0; i-- {
		item := items[i]
		sec := item.Section
		total += sec.Course.Credits
		rows = append(rows, map[string]string{
			"No":          strconv.Itoa(len(rows) + 1),
			"Kode":        sec.Course.Code,
			"Mata Kuliah": sec.Course.Name,
			"Kelas":       sec.ClassCode,
			"SKS":         strconv.Itoa(sec.Course.Credits),
			"Jadwal":      fmt.Sprintf("%s, %s-%s", sec.Day, sec.StartTime, sec.EndTime),
			"Ruangan":     sec.Room,
			"Dosen":       sec.Lecturer,
			"Status":      string(item.Status),
		})
	}
	return export.Dataset{
		Headers: cardHeaders,
		Rows:    rows,
		Footer:  map[string]string{"Mata Kuliah": "Total SKS", "SKS": strconv.Itoa(total)},
	}
}

func cardDocument(student *models.User, term models.Term) export.Document {
	program := "-"
	if student.Program != nil && *student.Program != "" {
		program = *student.Program
	}
	return export.Document{
		Title: "Kartu Rencana Studi",
		Lines: [][2]string{
			{"NIM", student.NIM},
			{"Nama", student.FullName},
			{"Program Studi", program},
			{"Semester", term.Semester},
			{"Tahun Ajaran", term.AcademicYear},
		},
		Weights: cardWeights,
	}
}

func fileSafe(v string) string {
	return strings.NewReplacer("/", "-", " ", "_").Replace(strings.ToLower(v))
}
