package booking

const (
	operationCreateAppointment     = "create_appointment"
	operationTransitionAppointment = "transition_appointment"
	operationCancelAppointment     = "cancel_appointment"
	operationExpireAppointment     = "expire_appointment"
	operationSetQuotedPrice        = "set_quoted_price"
	operationCreateInvoice         = "create_invoice"
	operationEditInvoiceDraft      = "edit_invoice_draft"
	operationTransitionInvoice     = "transition_invoice"
	operationRequestPayment        = "request_payment"

	operationStatusOK    = "ok"
	operationStatusError = "error"

	dateLayout = "2006-01-02"
	slotLayout = "15:04"

	defaultServiceType       = "General Service"
	defaultRewardHistorySize = 50

	rewardNoteEarn       = "Service completed reward"
	rewardNoteRedeemForm = "Redeemed at payment for invoice %s"
)
