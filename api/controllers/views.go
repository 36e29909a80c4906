package controllers

import (
	"time"

	"github.com/brickyield/brickyield-backend/internal/distribution"
	"github.com/brickyield/brickyield-backend/pkg/db/models"
)

type propertyView struct {
	ExternalID            int64   `json:"external_id"`
	OwnerAddress          string  `json:"owner_address"`
	TreasuryAddress       string  `json:"treasury_address"`
	OperatorAddress       string  `json:"operator_address"`
	PendingOwnerAddress   *string `json:"pending_owner_address,omitempty"`
	CarriedRemainderUnits int64   `json:"carried_remainder_units"`
	TotalDepositedUnits   int64   `json:"total_deposited_units"`
	TotalPaidOutUnits     int64   `json:"total_paid_out_units"`
	CurrentSequence       int64   `json:"current_sequence"`
}

func toPropertyView(p *models.Property) propertyView {
	view := propertyView{
		ExternalID:            p.ExternalID,
		OwnerAddress:          p.OwnerAddress.String(),
		TreasuryAddress:       p.TreasuryAddress.String(),
		OperatorAddress:       p.OperatorAddress.String(),
		CarriedRemainderUnits: p.CarriedRemainderUnits,
		TotalDepositedUnits:   p.TotalDepositedUnits,
		TotalPaidOutUnits:     p.TotalPaidOutUnits,
		CurrentSequence:       p.CurrentSequence,
	}
	if p.PendingOwnerAddress != nil {
		pending := p.PendingOwnerAddress.String()
		view.PendingOwnerAddress = &pending
	}
	return view
}

type roundView struct {
	Sequence       int64      `json:"sequence"`
	State          string     `json:"state"`
	DepositedUnits int64      `json:"deposited_units"`
	TotalShares    int64      `json:"total_shares"`
	RemainderUnits int64      `json:"remainder_units"`
	FinalizedAt    *time.Time `json:"finalized_at,omitempty"`
	ClosedAt       *time.Time `json:"closed_at,omitempty"`
	ClaimedUnits   *int64     `json:"claimed_units,omitempty"`
	HolderCount    *int       `json:"holder_count,omitempty"`
}

func toRoundView(round *models.DistributionRound) roundView {
	return roundView{
		Sequence:       round.Sequence,
		State:          round.State.String(),
		DepositedUnits: round.DepositedUnits,
		TotalShares:    round.TotalShares,
		RemainderUnits: round.RemainderUnits,
		FinalizedAt:    round.FinalizedAt,
		ClosedAt:       round.ClosedAt,
	}
}

func toRoundDetailView(view *distribution.RoundView) roundView {
	out := toRoundView(&view.Round)
	claimed := view.ClaimedUnits
	holders := view.HolderCount
	out.ClaimedUnits = &claimed
	out.HolderCount = &holders
	return out
}

type claimView struct {
	HolderAddress string    `json:"holder_address"`
	AmountUnits   int64     `json:"amount_units"`
	ClaimedAt     time.Time `json:"claimed_at"`
}

func toClaimView(claim *models.Claim) claimView {
	return claimView{
		HolderAddress: claim.HolderAddress.String(),
		AmountUnits:   claim.AmountUnits,
		ClaimedAt:     claim.CreatedAt,
	}
}

type claimsPageView struct {
	Claims     []claimView `json:"claims"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

func toClaimsPageView(claims []models.Claim, next string) claimsPageView {
	views := make([]claimView, 0, len(claims))
	for i := range claims {
		views = append(views, toClaimView(&claims[i]))
	}
	return claimsPageView{Claims: views, NextCursor: next}
}

type entitlementView struct {
	HolderAddress    string `json:"holder_address"`
	Sequence         int64  `json:"sequence"`
	ShareBalance     int64  `json:"share_balance"`
	EntitlementUnits int64  `json:"entitlement_units"`
	Claimed          bool   `json:"claimed"`
}

func toEntitlementView(view *distribution.EntitlementView) entitlementView {
	return entitlementView{
		HolderAddress:    view.Holder.String(),
		Sequence:         view.Sequence,
		ShareBalance:     view.ShareBalance,
		EntitlementUnits: view.EntitlementUnits,
		Claimed:          view.Claimed,
	}
}

type roleChangeView struct {
	Role       string    `json:"role"`
	OldAddress string    `json:"old_address"`
	NewAddress string    `json:"new_address"`
	ChangedAt  time.Time `json:"changed_at"`
}

func toRoleChangeViews(changes []models.RoleChange) []roleChangeView {
	views := make([]roleChangeView, 0, len(changes))
	for _, change := range changes {
		views = append(views, roleChangeView{
			Role:       change.Role.String(),
			OldAddress: change.OldAddress.String(),
			NewAddress: change.NewAddress.String(),
			ChangedAt:  change.CreatedAt,
		})
	}
	return views
}
