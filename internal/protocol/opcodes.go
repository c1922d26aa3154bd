package protocol

import "fmt"

// OpCode is the first byte of every message and selects its layout
type OpCode byte

const (
	OpAssignID OpCode = iota
	OpConnect
	OpConnectionResponse
	OpInitialiseGame
	OpDisconnection
	OpQuickPlace
	OpQuickPlaceResult
	OpStartTurn
	OpDraw
	OpDrawResult
	OpDisplayDraw
	OpDiscard
	OpDiscardResult
	OpSwap
	OpDisplaySwap
	OpPeek
	OpPeekResult
	OpDisplayPeek
	OpScramble
	OpDisplayScramble
	OpPassTurn
	OpForceEndTurn
	OpCallIt
	OpCalledIt
	OpGameEnd
	OpActionRejected
)

var opNames = [...]string{
	OpAssignID:           "AssignId",
	OpConnect:            "Connect",
	OpConnectionResponse: "ConnectionResponse",
	OpInitialiseGame:     "InitialiseGame",
	OpDisconnection:      "Disconnection",
	OpQuickPlace:         "QuickPlace",
	OpQuickPlaceResult:   "QuickPlaceResult",
	OpStartTurn:          "StartTurn",
	OpDraw:               "Draw",
	OpDrawResult:         "DrawResult",
	OpDisplayDraw:        "DisplayDraw",
	OpDiscard:            "Discard",
	OpDiscardResult:      "DiscardResult",
	OpSwap:               "Swap",
	OpDisplaySwap:        "DisplaySwap",
	OpPeek:               "Peek",
	OpPeekResult:         "PeekResult",
	OpDisplayPeek:        "DisplayPeek",
	OpScramble:           "Scramble",
	OpDisplayScramble:    "DisplayScramble",
	OpPassTurn:           "PassTurn",
	OpForceEndTurn:       "ForceEndTurn",
	OpCallIt:             "CallIt",
	OpCalledIt:           "CalledIt",
	OpGameEnd:            "GameEnd",
	OpActionRejected:     "ActionRejected",
}

func (op OpCode) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return fmt.Sprintf("OpCode(%d)", byte(op))
}

// ErrorCode explains a refused connection
type ErrorCode byte

const (
	UsernameTaken ErrorCode = iota
	GameIsFull
)

func (e ErrorCode) String() string {
	switch e {
	case UsernameTaken:
		return "username taken"
	case GameIsFull:
		return "game is full"
	default:
		return fmt.Sprintf("error(%d)", byte(e))
	}
}

// QuickPlaceOutcome is the verdict on a quick-place attempt
type QuickPlaceOutcome byte

const (
	QuickPlaceSuccess QuickPlaceOutcome = iota
	QuickPlaceFailure
	QuickPlaceTooLate
)

func (q QuickPlaceOutcome) String() string {
	switch q {
	case QuickPlaceSuccess:
		return "success"
	case QuickPlaceFailure:
		return "failure"
	case QuickPlaceTooLate:
		return "too late"
	default:
		return fmt.Sprintf("outcome(%d)", byte(q))
	}
}

// RejectReason says why the server ignored a request
type RejectReason byte

const (
	RejectNotYourTurn RejectReason = iota
	RejectNotExpected
	RejectNotOwned
	RejectHandLocked
	RejectDeckEmpty
	RejectAlreadyCalled
	RejectUnknownCard
	RejectUnknownPlayer
	RejectDrawUnresolved
	RejectInterruptPending
	RejectGameNotStarted
	RejectInternal
)

var rejectNames = [...]string{
	RejectNotYourTurn:      "not your turn",
	RejectNotExpected:      "not expected now",
	RejectNotOwned:         "card not owned",
	RejectHandLocked:       "hand is locked",
	RejectDeckEmpty:        "deck is empty",
	RejectAlreadyCalled:    "already called",
	RejectUnknownCard:      "unknown card",
	RejectUnknownPlayer:    "unknown player",
	RejectDrawUnresolved:   "drawn card unresolved",
	RejectInterruptPending: "quick-place pending",
	RejectGameNotStarted:   "game not started",
	RejectInternal:         "server fault",
}

func (r RejectReason) String() string {
	if int(r) < len(rejectNames) {
		return rejectNames[r]
	}
	return fmt.Sprintf("reason(%d)", byte(r))
}
