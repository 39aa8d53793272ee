package models

// Event names published through the session event sink. Observers are
// external (UI layers, metrics); the engine only guarantees when each fires.
const (
	EventMsg                 = "msg"
	EventTxReceived          = "on_tx_received"
	EventTx                  = "on_tx"
	EventBlock               = "on_block"
	EventWSOpen              = "ws_on_open"
	EventWSClose             = "ws_on_close"
	EventDidFailSetGUID      = "did_fail_set_guid"
	EventErrorRestoring      = "error_restoring_wallet"
	EventHDWalletsDoNotExist = "hd_wallets_does_not_exist"
	EventBackupStart         = "on_backup_wallet_start"
	EventBackupSuccess       = "on_backup_wallet_success"
	EventBackupError         = "on_backup_wallet_error"
	EventLoggingOut          = "logging_out"
)

// Msg is the payload of EventMsg: a leveled, human-readable notice.
type Msg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// MsgError and MsgSuccess are the levels used for EventMsg payloads.
const (
	MsgError   = "error"
	MsgSuccess = "success"
)
