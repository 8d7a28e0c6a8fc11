package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/nurpe/energy-contracts/internal/model"
)

const (
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypePDF  = "application/pdf"
)

type ReportGenerator interface {
	Generate(report model.ContractReport) ([]byte, error)
}

type ExportFile struct {
	FileName    string
	ContentType string
	Content     []byte
}

// ExportService renders a contract and its history as downloadable files.
type ExportService struct {
	contracts *ContractService
	workbook  ReportGenerator
	sheet     ReportGenerator
	sanitize  func(string) string
}

func NewExportService(contracts *ContractService, workbook, sheet ReportGenerator, sanitize func(string) string) *ExportService {
	return &ExportService{
		contracts: contracts,
		workbook:  workbook,
		sheet:     sheet,
		sanitize:  sanitize,
	}
}

func (s *ExportService) ExportHistoryExcel(ctx context.Context, contractID uuid.UUID) (*ExportFile, error) {
	report, err := s.buildReport(ctx, contractID)
	if err != nil {
		return nil, err
	}
	content, err := s.workbook.Generate(*report)
	if err != nil {
		return nil, fmt.Errorf("render history workbook: %w", err)
	}
	return &ExportFile{
		FileName:    s.fileName("storico", report.Contract, "xlsx"),
		ContentType: ContentTypeXLSX,
		Content:     content,
	}, nil
}

func (s *ExportService) ExportContractPDF(ctx context.Context, contractID uuid.UUID) (*ExportFile, error) {
	report, err := s.buildReport(ctx, contractID)
	if err != nil {
		return nil, err
	}
	content, err := s.sheet.Generate(*report)
	if err != nil {
		return nil, fmt.Errorf("render contract sheet: %w", err)
	}
	return &ExportFile{
		FileName:    s.fileName("contratto", report.Contract, "pdf"),
		ContentType: ContentTypePDF,
		Content:     content,
	}, nil
}

func (s *ExportService) buildReport(ctx context.Context, contractID uuid.UUID) (*model.ContractReport, error) {
	c := s.contracts
	contract, err := c.loadContract(ctx, contractID)
	if err != nil {
		return nil, err
	}
	customer, err := c.loadCustomer(ctx, contract.CustomerID)
	if err != nil {
		return nil, err
	}
	history, err := c.ListHistory(ctx, contract.ID)
	if err != nil {
		return nil, err
	}
	assignment, err := c.loadAssignment(ctx, contract)
	if err != nil {
		return nil, err
	}

	report := &model.ContractReport{
		Contract:    *contract,
		Customer:    *customer,
		Commission:  assignment,
		History:     history,
		GeneratedAt: c.now(),
	}
	if assignment != nil {
		agent, err := c.loadAgent(ctx, assignment.AgentID)
		switch {
		case err == nil:
			report.AgentName = agent.Name
		case !errors.Is(err, ErrNotFound):
			return nil, err
		}
	}
	return report, nil
}

func (s *ExportService) fileName(prefix string, contract model.Contract, ext string) string {
	name := fmt.Sprintf("%s_%s_%s_%s", prefix, contract.Commodity, contract.SupplyPoint, s.contracts.now().Format("20060102"))
	if s.sanitize != nil {
		name = s.sanitize(name)
	}
	return name + "." + ext
}
