package main

import (
	"context"
	"fmt"
	"time"

	"github.com/boddenberg/project-portal-go/internal/domain"
	"github.com/boddenberg/project-portal-go/internal/infra/memstore"

	"go.uber.org/zap"
)

const devPassword = "portal-dev"

// seedDevData fills the memory backend with one account per role and a
// sample project owned by the client.
func seedDevData(ctx context.Context, store *memstore.Store, logger *zap.Logger) error {
	company := "Acme Logistics"
	profiles, err := store.Seed(ctx,
		memstore.SeedUser{Email: "admin@portal.dev", Password: devPassword, FullName: "Portal Admin", Role: domain.RoleAdmin},
		memstore.SeedUser{Email: "team@portal.dev", Password: devPassword, FullName: "Delivery Lead", Role: domain.RoleTeamMember},
		memstore.SeedUser{Email: "client@portal.dev", Password: devPassword, FullName: "Acme Owner", Role: domain.RoleClient, Company: &company},
	)
	if err != nil {
		return err
	}

	total, savings, roi := 48000.0, 3500.0, 87.5
	project, err := store.CreateProject(ctx, domain.ProjectInput{
		ProfileID:           profiles[2].ID,
		Name:                "Warehouse automation",
		Status:              domain.ProjectActive,
		ProgressPercentage:  40,
		TotalAmount:         &total,
		MonthlySavings:      &savings,
		AnnualROIPercentage: &roi,
	})
	if err != nil {
		return fmt.Errorf("seed project: %w", err)
	}

	phases := []struct {
		name     string
		status   domain.PhaseStatus
		progress int
	}{
		{"Discovery", domain.PhaseCompleted, 100},
		{"Integration", domain.PhaseInProgress, 45},
		{"Rollout", domain.PhaseNotStarted, 0},
	}
	for i, p := range phases {
		if _, err := store.CreatePhase(ctx, domain.PhaseInput{
			ProjectID: project.ID, Name: p.name, OrderIndex: i + 1, Status: p.status, ProgressPercentage: p.progress,
		}); err != nil {
			return fmt.Errorf("seed phase %s: %w", p.name, err)
		}
	}

	today := time.Now().UTC()
	payments := []struct {
		name   string
		amount float64
		due    time.Time
		status domain.PaymentStatus
	}{
		{"Kickoff deposit", 12000, today.AddDate(0, -2, 0), domain.PaymentPaid},
		{"Integration milestone", 18000, today.AddDate(0, 0, -3), domain.PaymentPending},
		{"Go-live", 18000, today.AddDate(0, 2, 0), domain.PaymentPending},
	}
	for _, p := range payments {
		if _, err := store.CreatePayment(ctx, domain.PaymentInput{
			ProjectID: project.ID, Name: p.name, Amount: p.amount, DueDate: p.due.Format(domain.DateLayout), Status: p.status,
		}); err != nil {
			return fmt.Errorf("seed payment %s: %w", p.name, err)
		}
	}

	logger.Warn("memory backend seeded with development accounts",
		zap.Strings("emails", []string{"admin@portal.dev", "team@portal.dev", "client@portal.dev"}),
		zap.String("password", devPassword),
	)
	return nil
}
