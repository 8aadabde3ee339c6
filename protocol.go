package main

// Messages coming from clients. One envelope for every type, with
// per-type optional fields.
type ClientMessage struct {
	Type        string `json:"type"`                  // "connect", "join", "startGame", "submitAnswer", "nextState", "sendEmoji"
	Role        string `json:"role,omitempty"`        // connect
	PlayerID    string `json:"playerId,omitempty"`    // connect (reconnection)
	PlayerToken string `json:"playerToken,omitempty"` // connect (reconnection)
	Nickname    string `json:"nickname,omitempty"`    // join
	AnswerIndex *int   `json:"answerIndex,omitempty"` // submitAnswer
	Emoji       string `json:"emoji,omitempty"`       // sendEmoji
}

const (
	roleHost   = "host"
	rolePlayer = "player"
)

// Machine-readable error codes sent to clients.
const (
	codeGameNotFound       = "GAME_NOT_FOUND"
	codeGameAlreadyExists  = "GAME_ALREADY_EXISTS"
	codeEmptyQuiz          = "EMPTY_QUIZ"
	codeGameAlreadyStarted = "GAME_ALREADY_STARTED"
	codeGameNotInLobby     = "GAME_NOT_IN_LOBBY"
	codeGameFull           = "GAME_FULL"
	codeNicknameTaken      = "NICKNAME_TAKEN"
	codeInvalidNickname    = "INVALID_NICKNAME"
	codeInvalidAnswer      = "INVALID_ANSWER"
	codeAlreadyAnswered    = "ALREADY_ANSWERED"
	codeTimeExpired        = "TIME_EXPIRED"
	codeNotInQuestionPhase = "NOT_IN_QUESTION_PHASE"
	codeInvalidSession     = "INVALID_SESSION_TOKEN"
	codeInvalidHostSecret  = "INVALID_HOST_SECRET"
	codeNotConnected       = "NOT_CONNECTED"
	codeNotJoined          = "NOT_JOINED"
	codeOnlyHostStart      = "ONLY_HOST_CAN_START"
	codeOnlyHostAdvance    = "ONLY_HOST_CAN_ADVANCE"
	codeOnlyPlayersAnswer  = "ONLY_PLAYERS_CAN_ANSWER"
	codeOnlyPlayersEmoji   = "ONLY_PLAYERS_CAN_EMOJI"
	codeEmojiNotAllowed    = "EMOJI_NOT_ALLOWED"
	codeInvalidMessage     = "INVALID_MESSAGE"
)

var errorMessages = map[string]string{
	codeGameNotFound:       "That game does not exist.",
	codeGameAlreadyExists:  "A game with that ID already exists.",
	codeEmptyQuiz:          "A game needs at least one question.",
	codeGameAlreadyStarted: "The game has already started.",
	codeGameNotInLobby:     "The game is no longer in the lobby.",
	codeGameFull:           "The game is full.",
	codeNicknameTaken:      "That nickname is already taken.",
	codeInvalidNickname:    "Nicknames may only contain letters, digits, spaces, hyphens and underscores.",
	codeInvalidAnswer:      "That is not a valid answer for this question.",
	codeAlreadyAnswered:    "You have already answered this question.",
	codeTimeExpired:        "Time is up for this question.",
	codeNotInQuestionPhase: "Answers can only be submitted while a question is open.",
	codeInvalidSession:     "Your session token is invalid.",
	codeInvalidHostSecret:  "Invalid host secret.",
	codeNotConnected:       "Send a connect message first.",
	codeNotJoined:          "Join the game before doing that.",
	codeOnlyHostStart:      "Only the host can start the game.",
	codeOnlyHostAdvance:    "Only the host can advance the game.",
	codeOnlyPlayersAnswer:  "Only players can submit answers.",
	codeOnlyPlayersEmoji:   "Only players can send emoji.",
	codeEmojiNotAllowed:    "Emoji are not allowed right now.",
	codeInvalidMessage:     "Malformed message.",
}

// wireError builds the error payload for a code, with an optional
// per-call override of the default human-readable text.
func wireError(code string, override ...string) ErrorMessage {
	text := errorMessages[code]
	if len(override) > 0 && override[0] != "" {
		text = override[0]
	}

	return ErrorMessage{
		Type:    "error",
		Code:    code,
		Message: text,
	}
}
