package models

import (
	"database/sql"
	"time"
)

// Game statuses
const (
	GameStatusPending  = "PENDING"
	GameStatusStarted  = "STARTED"
	GameStatusFinished = "FINISHED"
)

// Game request statuses
const (
	RequestStatusPending  = "PENDING"
	RequestStatusAccepted = "ACCEPTED"
	RequestStatusRejected = "REJECTED"
)

// Tournament statuses
const (
	TournamentStatusPending    = "PENDING"
	TournamentStatusInProgress = "IN_PROGRESS"
	TournamentStatusFinished   = "FINISHED"
)

// Game end reasons
const (
	EndReasonNatural = "NATURAL"
	EndReasonForfeit = "FORFEIT"
)

// Player represents a user account
type Player struct {
	ID               string         `db:"id" json:"id"`
	Username         string         `db:"username" json:"username"`
	PasswordHash     string         `db:"password_hash" json:"-"`
	Avatar           string         `db:"avatar" json:"avatar"`
	Online           bool           `db:"online" json:"online"`
	Wins             int            `db:"wins" json:"wins"`
	Losses           int            `db:"losses" json:"losses"`
	TwoFactorEnabled bool           `db:"two_factor_enabled" json:"two_factor_enabled"`
	TwoFactorSecret  sql.NullString `db:"two_factor_secret" json:"-"`
	APIUserID        sql.NullInt64  `db:"api_user_id" json:"api_user_id,omitempty"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
}

// PongGame represents one match between two players
type PongGame struct {
	ID           string         `db:"id" json:"id"`
	Player1ID    string         `db:"player1_id" json:"player1_id"`
	Player2ID    string         `db:"player2_id" json:"player2_id"`
	Player1Score int            `db:"player1_score" json:"player1_score"`
	Player2Score int            `db:"player2_score" json:"player2_score"`
	Status       string         `db:"status" json:"status"`
	WinnerID     sql.NullString `db:"winner_id" json:"winner_id,omitempty"`
	TournamentID sql.NullString `db:"tournament_id" json:"tournament_id,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	FinishedAt   sql.NullTime   `db:"finished_at" json:"finished_at,omitempty"`
}

// GameRequest represents a direct challenge from one player to another
type GameRequest struct {
	ID          string    `db:"id" json:"id"`
	RequesterID string    `db:"requester_id" json:"requester_id"`
	OpponentID  string    `db:"opponent_id" json:"opponent_id"`
	Status      string    `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Tournament represents a four player single elimination bracket
type Tournament struct {
	ID        string         `db:"id" json:"id"`
	CreatorID string         `db:"creator_id" json:"creator_id"`
	Status    string         `db:"status" json:"status"`
	WinnerID  sql.NullString `db:"winner_id" json:"winner_id,omitempty"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}

// TournamentParticipant binds a player to a bracket slot (1..4)
type TournamentParticipant struct {
	TournamentID string `db:"tournament_id" json:"tournament_id"`
	PlayerID     string `db:"player_id" json:"player_id"`
	Slot         int    `db:"slot" json:"slot"`
}

// MatchRecord is one row of a player's match history
type MatchRecord struct {
	ID           string       `db:"id" json:"id"`
	Player1      string       `db:"player1" json:"player1"`
	Player2      string       `db:"player2" json:"player2"`
	Player1Score int          `db:"player1_score" json:"player1_score"`
	Player2Score int          `db:"player2_score" json:"player2_score"`
	Winner       string       `db:"winner" json:"winner"`
	FinishedAt   sql.NullTime `db:"finished_at" json:"finished_at"`
}

// BlacklistedToken is a refresh token jti that may no longer be used
type BlacklistedToken struct {
	JTI           string    `db:"jti" json:"jti"`
	PlayerID      string    `db:"player_id" json:"player_id"`
	ExpiresAt     time.Time `db:"expires_at" json:"expires_at"`
	BlacklistedAt time.Time `db:"blacklisted_at" json:"blacklisted_at"`
}

// BackupCode is a single-use 2FA recovery code (stored hashed)
type BackupCode struct {
	ID       int64  `db:"id" json:"id"`
	PlayerID string `db:"player_id" json:"player_id"`
	CodeHash string `db:"code_hash" json:"-"`
	Used     bool   `db:"used" json:"used"`
}

// Friendship links two players; accepted=false means a pending request
// from Player1 (the requester) to Player2 (the addressee)
type Friendship struct {
	ID        string    `db:"id" json:"id"`
	Player1ID string    `db:"player1_id" json:"player1_id"`
	Player2ID string    `db:"player2_id" json:"player2_id"`
	Accepted  bool      `db:"accepted" json:"accepted"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// BlockedUser records that a player has blocked another
type BlockedUser struct {
	ID        string    `db:"id" json:"id"`
	PlayerID  string    `db:"player_id" json:"player_id"`
	BlockedID string    `db:"blocked_id" json:"blocked_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Conversation is a direct message thread between two players
type Conversation struct {
	ID               string       `db:"id" json:"id"`
	Player1ID        string       `db:"player1_id" json:"player1_id"`
	Player2ID        string       `db:"player2_id" json:"player2_id"`
	LastMessage      string       `db:"last_message" json:"last_message"`
	VisibleToPlayer1 bool         `db:"visible_to_player1" json:"-"`
	VisibleToPlayer2 bool         `db:"visible_to_player2" json:"-"`
	LastMessageAt    sql.NullTime `db:"last_message_at" json:"last_message_at"`
}

// Message is a single chat message inside a conversation
type Message struct {
	ID               string    `db:"id" json:"id"`
	ConversationID   string    `db:"conversation_id" json:"conversation_id"`
	SenderID         string    `db:"sender_id" json:"sender_id"`
	Content          string    `db:"content" json:"content"`
	VisibleToPlayer1 bool      `db:"visible_to_player1" json:"-"`
	VisibleToPlayer2 bool      `db:"visible_to_player2" json:"-"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}
