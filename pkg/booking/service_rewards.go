package booking

import (
	"context"
)

// RewardBalance returns the user's derived points balance.
func (service *Service) RewardBalance(ctx context.Context, userID UserID) (RewardBalance, error) {
	return rewardBalance(ctx, service.store, userID)
}

// RewardHistory returns the user's latest reward rows, newest first.
// A non-positive limit returns the default page.
func (service *Service) RewardHistory(ctx context.Context, userID UserID, limit int) ([]RewardTransaction, error) {
	if limit <= 0 {
		limit = defaultRewardHistorySize
	}
	return service.store.ListRewardTransactions(ctx, userID, limit)
}

// awardIfSettled writes the EARN row of a COMPLETED appointment whose invoice is PAID.
// invoice may be nil, in which case it is looked up. Repeated calls write at most
// one row; the return value is the number of points newly credited.
func (service *Service) awardIfSettled(ctx context.Context, txStore Store, appointment Appointment, invoice *Invoice) (int64, error) {
	if appointment.Status != StatusCompleted {
		return 0, nil
	}
	if invoice == nil {
		found, ok, err := txStore.FindInvoiceByAppointment(ctx, appointment.ID)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, nil
		}
		invoice = &found
	}
	if invoice.Status != InvoicePaid {
		return 0, nil
	}
	points := CalculateServicePoints(invoice.Total)
	if points <= 0 {
		return 0, nil
	}
	appointmentID := appointment.ID
	created, err := txStore.InsertRewardIfAbsent(ctx, RewardTransaction{
		UserID:        appointment.CustomerID,
		AppointmentID: &appointmentID,
		Type:          RewardEarn,
		Points:        points,
		Note:          rewardNoteEarn,
		CreatedAt:     service.now(),
	})
	if err != nil {
		return 0, err
	}
	if !created {
		return 0, nil
	}
	return points, nil
}

func rewardBalance(ctx context.Context, store Store, userID UserID) (RewardBalance, error) {
	earned, err := store.SumRewardPoints(ctx, userID, RewardEarn)
	if err != nil {
		return RewardBalance{}, err
	}
	redeemed, err := store.SumRewardPoints(ctx, userID, RewardRedeem)
	if err != nil {
		return RewardBalance{}, err
	}
	return RewardBalance{
		Balance:  earned - redeemed,
		Earned:   earned,
		Redeemed: redeemed,
	}, nil
}
