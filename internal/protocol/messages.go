// internal/protocol/messages.go
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/gridclash/arena/internal/models"
)

// Inbound message names. The envelope's "type" field selects the payload
// variant; each variant is validated at the boundary before dispatch.
const (
	MsgRegister              = "register"
	MsgEnterLobby            = "enterLobby"
	MsgLeaveLobby            = "leaveLobby"
	MsgToggleReady           = "toggleReady"
	MsgToggleAutoReady       = "toggleAutoReady"
	MsgSetAwayStatus         = "setAwayStatus"
	MsgSendRequest           = "sendRequest"
	MsgSendManualRequest     = "sendManualRequest" // legacy alias of sendRequest
	MsgRespondToRequest      = "respondToRequest"
	MsgFinalConfirm          = "finalConfirm"
	MsgJoinRoom              = "joinRoom"
	MsgLeaveRoom             = "leaveRoom"
	MsgPlayerReadyForStart   = "playerReadyForStart"
	MsgPlayerReadyForRematch = "playerReadyForRematch"
	MsgSendGridData          = "sendGridData"
	MsgSendAttack            = "sendAttack"
	MsgReportKO              = "reportKO"
	MsgDeclareDefeat         = "declareDefeat"
	MsgRequestRematch        = "requestRematch"
	MsgAnswerRematch         = "answerRematch"
)

// Outbound message names.
const (
	EvForceLogout        = "force_logout"
	EvLobbyUpdate        = "lobby_update"
	EvIncomingRequest    = "incoming_request"
	EvRequestSent        = "requestSent"
	EvOpponentAccepted   = "opponent_accepted"
	EvOpponentDeclined   = "opponent_declined"
	EvRequestCancelled   = "request_cancelled"
	EvUnavailable        = "opponentIsAfk"
	EvMatchFound         = "matchFound"
	EvOpponentGridUpdate = "opponentGridUpdate"
	EvIncomingAttack     = "incomingAttack"
	EvOpponentAwayStatus = "opponentAwayStatus"
	EvUpdateOutCount     = "updateOutCount"
	EvGameOver           = "gameOver"
	EvRematchRequested   = "rematchRequested"
	EvRematchAccepted    = "rematchAccepted"
	EvRematchDeclined    = "rematchDeclined"
	EvStartRematch       = "startRematch"
	EvGameStart          = "gameStart"
	EvOpponentLeft       = "opponentLeft"
	EvError              = "error"
)

// Envelope frames every message in both directions:
// {"type": "...", "data": {...}}.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// DecodeEnvelope parses a raw frame. The data portion stays raw until the
// dispatcher selects the variant.
func DecodeEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("malformed envelope: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("envelope missing type")
	}
	return env, nil
}

// Decode unmarshals the envelope data into the given payload variant and
// runs its field validation, if any.
func (e Envelope) Decode(v interface{}) error {
	data := e.Data
	if len(data) == 0 {
		data = []byte("{}")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%s: invalid payload: %w", e.Type, err)
	}
	if val, ok := v.(interface{ Validate() error }); ok {
		if err := val.Validate(); err != nil {
			return fmt.Errorf("%s: %w", e.Type, err)
		}
	}
	return nil
}

// --- Inbound payload variants ---

type Register struct {
	Nickname string `json:"nickname"`
}

type EnterLobby struct {
	Nickname string `json:"nickname"`
	Country  string `json:"country"`
	Level    int    `json:"level"`
}

// Toggle carries the desired state for toggleReady / toggleAutoReady, so a
// re-sent toggle is idempotent.
type Toggle struct {
	Enabled bool `json:"enabled"`
}

type SetAwayStatus struct {
	IsAway bool `json:"isAway"`
	// BattleID scopes the notice to a battle; without it the away flag
	// applies to the lobby entry instead.
	BattleID string `json:"battleId,omitempty"`
}

type SendRequest struct {
	OpponentNickname string `json:"opponentNickname"`
}

func (p SendRequest) Validate() error {
	if p.OpponentNickname == "" {
		return fmt.Errorf("missing opponentNickname")
	}
	return nil
}

type RespondToRequest struct {
	RequestID string `json:"requestId"`
	Accepted  bool   `json:"accepted"`
}

func (p RespondToRequest) Validate() error {
	if p.RequestID == "" {
		return fmt.Errorf("missing requestId")
	}
	return nil
}

type FinalConfirm struct {
	RequestID string `json:"requestId"`
	Confirmed bool   `json:"confirmed"`
}

func (p FinalConfirm) Validate() error {
	if p.RequestID == "" {
		return fmt.Errorf("missing requestId")
	}
	return nil
}

// Room identifies the battle a room-scoped message applies to.
type Room struct {
	BattleID string `json:"battleId"`
}

func (p Room) Validate() error {
	if p.BattleID == "" {
		return fmt.Errorf("missing battleId")
	}
	return nil
}

// GridData relays an opaque board snapshot to the opponent.
type GridData struct {
	BattleID string          `json:"battleId"`
	GridData json.RawMessage `json:"gridData"`
}

func (p GridData) Validate() error {
	if p.BattleID == "" {
		return fmt.Errorf("missing battleId")
	}
	return nil
}

// Attack relays an opaque attack event to the opponent.
type Attack struct {
	BattleID   string          `json:"battleId"`
	AttackData json.RawMessage `json:"attackData"`
}

func (p Attack) Validate() error {
	if p.BattleID == "" {
		return fmt.Errorf("missing battleId")
	}
	return nil
}

type ReportKO struct {
	BattleID         string `json:"battleId"`
	OpponentNickname string `json:"opponentNickname"`
}

func (p ReportKO) Validate() error {
	if p.BattleID == "" {
		return fmt.Errorf("missing battleId")
	}
	if p.OpponentNickname == "" {
		return fmt.Errorf("missing opponentNickname")
	}
	return nil
}

type DeclareDefeat struct {
	BattleID string `json:"battleId"`
	// Left distinguishes a voluntary forfeit from an explicit loss report.
	Left bool `json:"left"`
}

func (p DeclareDefeat) Validate() error {
	if p.BattleID == "" {
		return fmt.Errorf("missing battleId")
	}
	return nil
}

type AnswerRematch struct {
	BattleID string `json:"battleId"`
	Accepted bool   `json:"accepted"`
}

func (p AnswerRematch) Validate() error {
	if p.BattleID == "" {
		return fmt.Errorf("missing battleId")
	}
	return nil
}

// --- Outbound payloads ---

// LobbyPlayer is one row of a lobby snapshot.
type LobbyPlayer struct {
	Nickname    string `json:"nickname"`
	Country     string `json:"country"`
	Level       int    `json:"level"`
	IsReady     bool   `json:"isReady"`
	IsAutoReady bool   `json:"isAutoReady"`
	InBattle    bool   `json:"inBattle"`
	IsAway      bool   `json:"isAway"`
}

// LobbySnapshot is the full lobby_update payload.
type LobbySnapshot struct {
	Players []LobbyPlayer `json:"players"`
}

// IncomingRequest notifies the target of a match request.
type IncomingRequest struct {
	RequestID string         `json:"requestId"`
	From      models.Profile `json:"from"`
}

// RequestSent acknowledges a successfully delivered request to its sender.
type RequestSent struct {
	RequestID        string `json:"requestId"`
	OpponentNickname string `json:"opponentNickname"`
}

// RequestResult carries decline/accept/cancel notices tied to a request id.
type RequestResult struct {
	RequestID string `json:"requestId"`
	Nickname  string `json:"nickname"`
}

// Unavailable is the synchronous unavailability notice.
type Unavailable struct {
	Nickname string `json:"nickname"`
	Reason   string `json:"reason"`
}

// MatchFound announces a created battle to one participant.
type MatchFound struct {
	BattleID  string         `json:"battleId"`
	Opponent  models.Profile `json:"opponent"`
	IsPlayer1 bool           `json:"isPlayer1"`
}

// OutCount is the broadcast knockout-counter state of a battle.
type OutCount struct {
	BattleID string         `json:"battleId"`
	Counts   map[string]int `json:"counts"`
}

// GameOver concludes a battle round.
type GameOver struct {
	BattleID string `json:"battleId"`
	Winner   string `json:"winner"`
	Loser    string `json:"loser"`
	Reason   string `json:"reason"`
}

// AwayStatus relays a battle-scoped away/back notice.
type AwayStatus struct {
	Nickname string `json:"nickname"`
	IsAway   bool   `json:"isAway"`
}

// ErrorNotice is sent to a client whose message could not be handled.
type ErrorNotice struct {
	Message string `json:"message"`
}
