package calculator

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitwiser/internal/models"
)

// NetBalances nets obligations into one signed balance per counterparty of userID.
//
// Algorithm:
// - Pending obligation where userID is debtor: +amount (userID owes)
// - Pending obligation where userID is creditor: -amount (userID is owed)
// - Settled obligations contribute nothing but keep the counterparty listed,
//   so a settled-up relationship reports 0 instead of disappearing
// - Each net is rounded once, at the end, with banker's rounding to cents
//
// Obligations not involving userID are ignored. The result is sorted by
// counterparty ID.
func NetBalances(userID string, obligations []*models.Obligation) []models.Balance {
	nets := make(map[string]decimal.Decimal)

	for _, o := range obligations {
		if o.DebtorID != userID && o.CreditorID != userID {
			continue
		}
		if o.DebtorID == o.CreditorID {
			continue
		}

		other := o.Counterparty(userID)
		net, exists := nets[other]
		if !exists {
			net = decimal.Zero
		}

		if o.Status == models.StatusPending {
			if o.DebtorID == userID {
				net = net.Add(o.Amount)
			} else {
				net = net.Sub(o.Amount)
			}
		}
		nets[other] = net
	}

	balances := make([]models.Balance, 0, len(nets))
	for counterparty, net := range nets {
		balances = append(balances, models.Balance{
			CounterpartyID: counterparty,
			Net:            net.RoundBank(2),
		})
	}
	sort.Slice(balances, func(i, j int) bool {
		return balances[i].CounterpartyID < balances[j].CounterpartyID
	})
	return balances
}

// memberNet is one member's position inside a group.
type memberNet struct {
	userID string
	amount decimal.Decimal
}

// SimplifyDebts reduces the pending obligations of a group to a short list of
// payments that clears every member's net position.
//
// Algorithm:
// - Net position per member: +amount as creditor, -amount as debtor
// - Creditors and debtors are each sorted largest first (ties by user ID)
// - Greedy matching: the current debtor pays the current creditor the smaller
//   of the two outstanding amounts; whichever side reaches zero advances
func SimplifyDebts(obligations []*models.Obligation) []models.DebtEdge {
	positions := make(map[string]decimal.Decimal)
	for _, o := range obligations {
		if o.Status != models.StatusPending {
			continue
		}
		positions[o.CreditorID] = positions[o.CreditorID].Add(o.Amount)
		positions[o.DebtorID] = positions[o.DebtorID].Sub(o.Amount)
	}

	// Create lists of creditors (owed money) and debtors (owe money)
	var creditors, debtors []memberNet
	for userID, amount := range positions {
		switch amount.Sign() {
		case 1:
			creditors = append(creditors, memberNet{userID: userID, amount: amount})
		case -1:
			debtors = append(debtors, memberNet{userID: userID, amount: amount.Neg()})
		}
	}
	sortLargestFirst(creditors)
	sortLargestFirst(debtors)

	var edges []models.DebtEdge
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		debtor := &debtors[i]
		creditor := &creditors[j]

		// Amount to settle is minimum of what debtor owes and creditor is owed
		amount := decimal.Min(debtor.amount, creditor.amount)
		if amount.IsPositive() {
			edges = append(edges, models.DebtEdge{
				From:   debtor.userID,
				To:     creditor.userID,
				Amount: amount.RoundBank(2),
			})
		}

		debtor.amount = debtor.amount.Sub(amount)
		creditor.amount = creditor.amount.Sub(amount)

		if !debtor.amount.IsPositive() {
			i++
		}
		if !creditor.amount.IsPositive() {
			j++
		}
	}

	return edges
}

func sortLargestFirst(nets []memberNet) {
	sort.Slice(nets, func(a, b int) bool {
		if c := nets[a].amount.Cmp(nets[b].amount); c != 0 {
			return c > 0
		}
		return nets[a].userID < nets[b].userID
	})
}
