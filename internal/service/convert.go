package service

import (
	"github.com/mmynk/splitwiser/internal/calculator"
	"github.com/mmynk/splitwiser/internal/models"
	"github.com/mmynk/splitwiser/pkg/api"
)

func toAPISplits(splits []models.Split) []api.Split {
	out := make([]api.Split, len(splits))
	for i, s := range splits {
		out[i] = api.Split{UserID: s.UserID, Amount: s.Amount, Shares: s.Shares}
		if s.Percentage.Valid {
			pct := s.Percentage.Decimal
			out[i].Percentage = &pct
		}
	}
	return out
}

func fromAPISplits(splits []api.Split) []models.Split {
	out := make([]models.Split, len(splits))
	for i, s := range splits {
		out[i] = models.Split{UserID: s.UserID, Amount: s.Amount, Shares: s.Shares}
		if s.Percentage != nil {
			out[i].Percentage.Decimal = *s.Percentage
			out[i].Percentage.Valid = true
		}
	}
	return out
}

func fromAPIShares(shares []api.Share) []calculator.Share {
	out := make([]calculator.Share, len(shares))
	for i, s := range shares {
		out[i] = calculator.Share{
			UserID:     s.UserID,
			Amount:     s.Amount,
			Percentage: s.Percentage,
			Shares:     s.Shares,
		}
	}
	return out
}

func toAPIExpense(e *models.Expense) api.Expense {
	return api.Expense{
		ID:          e.ID,
		Description: e.Description,
		Amount:      e.Amount,
		PayerID:     e.PayerID,
		GroupID:     e.GroupID,
		Category:    e.Category,
		SplitKind:   string(e.Kind),
		Splits:      toAPISplits(e.Splits),
		Date:        e.Date,
		CreatedAt:   e.CreatedAt,
	}
}

func toAPIObligation(o *models.Obligation) api.Obligation {
	return api.Obligation{
		ID:         o.ID,
		DebtorID:   o.DebtorID,
		CreditorID: o.CreditorID,
		Amount:     o.Amount,
		GroupID:    o.GroupID,
		ExpenseID:  o.ExpenseID,
		Status:     string(o.Status),
		CreatedAt:  o.CreatedAt,
		SettledAt:  o.SettledAt,
	}
}

func toAPIObligations(obligations []*models.Obligation) []api.Obligation {
	out := make([]api.Obligation, len(obligations))
	for i, o := range obligations {
		out[i] = toAPIObligation(o)
	}
	return out
}

func toAPIGroup(g *models.Group) api.Group {
	members := make([]api.GroupMember, len(g.Members))
	for i, m := range g.Members {
		members[i] = api.GroupMember{UserID: m.UserID, Role: string(m.Role)}
	}
	return api.Group{
		ID:        g.ID,
		Name:      g.Name,
		CreatedBy: g.CreatedBy,
		Members:   members,
		CreatedAt: g.CreatedAt,
	}
}

func toAPIUser(u *models.User) api.User {
	return api.User{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		CreatedAt:   u.CreatedAt,
	}
}
