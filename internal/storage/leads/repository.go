// Package leads reads CRM lead records.
package leads

import (
	"context"
	"database/sql"
	stderrors "errors"

	"sales-orchestrator/internal/common/errors"
	"sales-orchestrator/internal/models"
)

const selectLeadColumns = `SELECT id, type, status, category, first_name, last_name, email, phone,
	vehicle_of_interest, vehicle_id, message, ai_score, ai_summary, credit_score, credit_band,
	down_payment, monthly_income, preferred_type, budget FROM leads`

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// GetLead returns the lead by id. A missing lead is a LEAD_NOT_FOUND error.
func (r *Repository) GetLead(ctx context.Context, id string) (*models.LeadContext, error) {
	row := r.db.QueryRowContext(ctx, selectLeadColumns+` WHERE id = $1`, id)
	lead, err := scanLead(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewLeadNotFoundError(id)
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("getLead", err)
	}
	return lead, nil
}

// ListByCategory returns up to limit leads in the given category, highest AI score first.
func (r *Repository) ListByCategory(ctx context.Context, category models.LeadCategory, limit int) ([]models.LeadContext, error) {
	rows, err := r.db.QueryContext(ctx,
		selectLeadColumns+` WHERE category = $1 ORDER BY ai_score DESC NULLS LAST, id LIMIT $2`,
		string(category), limit)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("listLeadsByCategory", err)
	}
	defer rows.Close()

	var out []models.LeadContext
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, errors.NewQueryExecutionFailedError("listLeadsByCategory", err)
		}
		out = append(out, *lead)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError("listLeadsByCategory", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanLead(s scanner) (*models.LeadContext, error) {
	var (
		lead                                  models.LeadContext
		leadType, status, category            sql.NullString
		firstName, lastName, email, phone     sql.NullString
		vehicleOfInterest, vehicleID, message sql.NullString
		aiSummary, creditBand, preferredType  sql.NullString
		aiScore, creditScore                  sql.NullInt64
		downPayment, monthlyIncome, budget    sql.NullFloat64
	)

	err := s.Scan(
		&lead.ID, &leadType, &status, &category, &firstName, &lastName, &email, &phone,
		&vehicleOfInterest, &vehicleID, &message, &aiScore, &aiSummary, &creditScore, &creditBand,
		&downPayment, &monthlyIncome, &preferredType, &budget,
	)
	if err != nil {
		return nil, err
	}

	lead.Type = leadType.String
	lead.Status = status.String
	lead.Category = category.String
	lead.FirstName = firstName.String
	lead.LastName = lastName.String
	lead.Email = email.String
	lead.Phone = phone.String
	lead.VehicleOfInterest = vehicleOfInterest.String
	lead.VehicleID = vehicleID.String
	lead.Message = message.String
	lead.AISummary = aiSummary.String
	lead.CreditBand = creditBand.String
	lead.PreferredType = preferredType.String
	lead.MonthlyIncome = monthlyIncome.Float64
	lead.Budget = budget.Float64

	if aiScore.Valid {
		v := int(aiScore.Int64)
		lead.AIScore = &v
	}
	if creditScore.Valid {
		v := int(creditScore.Int64)
		lead.CreditScore = &v
	}
	if downPayment.Valid {
		v := downPayment.Float64
		lead.DownPayment = &v
	}
	return &lead, nil
}
