package model

// Amounts are decimal strings so 256-bit values survive JSON untouched.

// SwapEventData is the decoded Swap event payload.
type SwapEventData struct {
	Sender     string `json:"sender"`
	To         string `json:"to"`
	Amount0In  string `json:"amount0_in"`
	Amount1In  string `json:"amount1_in"`
	Amount0Out string `json:"amount0_out"`
	Amount1Out string `json:"amount1_out"`
}

// MintEventData is the decoded Mint event payload.
type MintEventData struct {
	Sender  string `json:"sender"`
	Amount0 string `json:"amount0"`
	Amount1 string `json:"amount1"`
}

// BurnEventData is the decoded Burn event payload.
type BurnEventData struct {
	Sender  string `json:"sender"`
	To      string `json:"to"`
	Amount0 string `json:"amount0"`
	Amount1 string `json:"amount1"`
}

// SyncEventData is the decoded Sync event payload.
type SyncEventData struct {
	Reserve0 string `json:"reserve0"`
	Reserve1 string `json:"reserve1"`
}

// TransferEventData is a decoded share Transfer.
type TransferEventData struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Value string `json:"value"`
}

// ApprovalEventData is a decoded share Approval.
type ApprovalEventData struct {
	Owner   string `json:"owner"`
	Spender string `json:"spender"`
	Value   string `json:"value"`
}
