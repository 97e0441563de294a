package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pondokpos/backend/internal/domain"
	"pondokpos/backend/internal/store"
	"pondokpos/backend/internal/xid"
)

func (s *Service) CreateLoan(ctx context.Context, req domain.LoanCreateRequest) (domain.LoanResponse, error) {
	req.BorrowerName = strings.TrimSpace(req.BorrowerName)
	if req.BorrowerName == "" || len(req.Items) == 0 {
		return domain.LoanResponse{}, store.ErrInvalidRequest
	}

	var total int64
	for _, item := range req.Items {
		if strings.TrimSpace(item.Description) == "" || item.Qty < 1 || item.UnitPriceCents < 1 {
			return domain.LoanResponse{}, store.ErrInvalidRequest
		}
		total += int64(item.Qty) * item.UnitPriceCents
	}

	var dueDate *time.Time
	if req.DueDate != "" {
		parsed, err := time.Parse("2006-01-02", req.DueDate)
		if err != nil {
			return domain.LoanResponse{}, store.ErrInvalidRequest
		}
		dueDate = &parsed
	}

	loan, err := s.repo.CreateLoan(ctx, domain.Loan{
		ID:             xid.New("loan"),
		BorrowerName:   req.BorrowerName,
		TotalCents:     total,
		PaidCents:      0,
		RemainingCents: total,
		Status:         domain.LoanStatusActive,
		DueDate:        dueDate,
		CreatedAt:      time.Now().UTC(),
	})
	if err != nil {
		return domain.LoanResponse{}, err
	}

	s.logAudit(ctx, "loan_create", "loan", loan.ID, fmt.Sprintf("borrower=%s,total=%d", loan.BorrowerName, loan.TotalCents))
	return domain.LoanResponse{Loan: withDerivedLoanStatus(*loan)}, nil
}

// RecordLoanPayment appends an immutable payment and moves the loan
// balance. Paid plus remaining always equals the loan total; a payment
// larger than the remaining balance is rejected. The loan completes when
// the balance reaches zero.
func (s *Service) RecordLoanPayment(ctx context.Context, loanID string, req domain.LoanPaymentRequest) (domain.LoanResponse, error) {
	if req.AmountCents < 1 {
		return domain.LoanResponse{}, store.ErrInvalidRequest
	}

	mu := s.entityLock("loan:" + loanID)
	mu.Lock()
	defer mu.Unlock()

	loan, err := s.repo.GetLoanByID(ctx, loanID)
	if err != nil {
		return domain.LoanResponse{}, err
	}
	if loan.Status == domain.LoanStatusCompleted || loan.Status == domain.LoanStatusCancelled {
		return domain.LoanResponse{}, store.ErrInvalidRequest
	}
	if req.AmountCents > loan.RemainingCents {
		return domain.LoanResponse{}, store.ErrInvalidRequest
	}

	if _, err := s.repo.CreateLoanPayment(ctx, domain.LoanPayment{
		ID:          xid.New("pay"),
		LoanID:      loanID,
		AmountCents: req.AmountCents,
		Method:      req.Method,
		Reference:   req.Reference,
		CreatedAt:   time.Now().UTC(),
	}); err != nil {
		return domain.LoanResponse{}, err
	}

	loan.PaidCents += req.AmountCents
	loan.RemainingCents = loan.TotalCents - loan.PaidCents
	if loan.RemainingCents <= 0 {
		loan.RemainingCents = 0
		loan.Status = domain.LoanStatusCompleted
	}

	updated, err := s.repo.UpdateLoan(ctx, *loan)
	if err != nil {
		return domain.LoanResponse{}, err
	}

	payments, err := s.repo.ListLoanPayments(ctx, loanID)
	if err != nil {
		return domain.LoanResponse{}, err
	}

	s.logAudit(ctx, "loan_payment", "loan", loanID, fmt.Sprintf("amount=%d,remaining=%d", req.AmountCents, updated.RemainingCents))
	return domain.LoanResponse{Loan: withDerivedLoanStatus(*updated), Payments: payments}, nil
}

func (s *Service) GetLoan(ctx context.Context, loanID string) (domain.LoanResponse, error) {
	loan, err := s.repo.GetLoanByID(ctx, loanID)
	if err != nil {
		return domain.LoanResponse{}, err
	}
	payments, err := s.repo.ListLoanPayments(ctx, loanID)
	if err != nil {
		return domain.LoanResponse{}, err
	}
	return domain.LoanResponse{Loan: withDerivedLoanStatus(*loan), Payments: payments}, nil
}

func (s *Service) ListLoans(ctx context.Context, status string, limit int) ([]domain.Loan, error) {
	switch status {
	case "", domain.LoanStatusActive, domain.LoanStatusCompleted, domain.LoanStatusOverdue, domain.LoanStatusCancelled:
	default:
		return nil, store.ErrInvalidRequest
	}
	if limit < 1 {
		limit = 50
	}

	loans, err := s.repo.ListLoans(ctx, "", limit)
	if err != nil {
		return nil, err
	}

	result := make([]domain.Loan, 0, len(loans))
	for _, loan := range loans {
		derived := withDerivedLoanStatus(loan)
		if status != "" && derived.Status != status {
			continue
		}
		result = append(result, derived)
	}
	return result, nil
}

// withDerivedLoanStatus marks an active loan overdue once its due date
// has passed. The stored status stays active so a payment can still
// complete the loan normally.
func withDerivedLoanStatus(loan domain.Loan) domain.Loan {
	if loan.Status == domain.LoanStatusActive && loan.DueDate != nil && loan.DueDate.Before(time.Now().UTC()) {
		loan.Status = domain.LoanStatusOverdue
	}
	return loan
}
