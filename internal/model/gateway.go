package model

// Gateway payment statuses as delivered by the payment provider.
const (
	GatewayApproved  = "approved"
	GatewayPending   = "pending"
	GatewayInProcess = "in_process"
	GatewayRejected  = "rejected"
	GatewayCancelled = "cancelled"
	GatewayExpired   = "expired"
)

// GatewayWebhookEvent is the asynchronous notification body POSTed by the
// gateway. Only data.id is trusted; the authoritative status is re-read
// from the gateway's payment endpoint.
type GatewayWebhookEvent struct {
	ID     string           `json:"id"`
	Type   string           `json:"type"`
	Action string           `json:"action"`
	Data   GatewayEventData `json:"data"`
}

type GatewayEventData struct {
	ID string `json:"id"`
}
