package events

import "github.com/scalarorg/bridge-core/pkg/types"

const (
	EVENT_DEPOSIT_CREATED           = "Bridge.DepositCreated"
	EVENT_WITHDRAWAL_STATUS_CHANGED = "Bridge.WithdrawalStatusChanged"
	EVENT_PROPOSAL_EXECUTED         = "Bridge.ProposalExecuted"
	EVENT_RELAY_ROUND_CREATED       = "Bridge.RelayRoundCreated"
)

// Envelope is one event published on the internal bus and, when enabled,
// forwarded to the message broker for external consumers.
type Envelope struct {
	Topic string      `json:"topic"`
	Data  interface{} `json:"data"`
}

type DepositCreated struct {
	Account   types.Address        `json:"account"`
	Asset     types.Address        `json:"asset"`
	Sender    types.Address        `json:"sender"`
	Amount    uint64               `json:"amount"`
	Recipient types.ForeignAddress `json:"recipient"`
}

type WithdrawalStatusChanged struct {
	Account types.Address          `json:"account"`
	Asset   types.Address          `json:"asset"`
	Status  types.WithdrawalStatus `json:"status"`
	Amount  uint64                 `json:"amount"`
}

type ProposalExecuted struct {
	Account     types.Address `json:"account"`
	RoundNumber uint32        `json:"round_number"`
}

type RelayRoundCreated struct {
	Account     types.Address   `json:"account"`
	RoundNumber uint32          `json:"round_number"`
	RoundEnd    int64           `json:"round_end"`
	Relays      []types.Address `json:"relays"`
}
