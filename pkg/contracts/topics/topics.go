package topics

const (
	// Liquidação
	BetSettled = "bet_settled"

	// DLQs
	BetSettlementDLQ = "bet_settlement_dlq"
)
