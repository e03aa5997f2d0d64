package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type" jsonschema:"enum=HELLO"`
	ProtocolVersion string `json:"protocol_version"`
	PlayerName      string `json:"player_name" jsonschema:"minLength=1,maxLength=64"`
	World           string `json:"world,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string `json:"type" jsonschema:"enum=WELCOME"`
	ProtocolVersion string `json:"protocol_version"`
	PlayerID        string `json:"player_id"`
	FirstJoin       bool   `json:"first_join"`
	World           string `json:"world"`
	Spawn           [3]int `json:"spawn"`
}

// RESPAWN (client -> server)
type RespawnMsg struct {
	Type            string `json:"type" jsonschema:"enum=RESPAWN"`
	ProtocolVersion string `json:"protocol_version"`
	HasBed          bool   `json:"has_bed"`
}

// SET_BED (client -> server). An absent pos clears the bed.
type SetBedMsg struct {
	Type            string  `json:"type" jsonschema:"enum=SET_BED"`
	ProtocolVersion string  `json:"protocol_version"`
	Pos             *[3]int `json:"pos,omitempty"`
}

// COMMAND (client -> server)
type CommandMsg struct {
	Type            string   `json:"type" jsonschema:"enum=COMMAND"`
	ProtocolVersion string   `json:"protocol_version"`
	Name            string   `json:"name" jsonschema:"minLength=1"`
	Args            []string `json:"args,omitempty"`
}

// SET_SPAWN (client -> server): an operator moving spawn outside the cycle.
type SetSpawnMsg struct {
	Type            string `json:"type" jsonschema:"enum=SET_SPAWN"`
	ProtocolVersion string `json:"protocol_version"`
	Pos             [3]int `json:"pos"`
}

// BROADCAST (server -> client)
type BroadcastMsg struct {
	Type            string `json:"type" jsonschema:"enum=BROADCAST"`
	ProtocolVersion string `json:"protocol_version"`
	Text            string `json:"text"`
}

// REPLY (server -> client), answering COMMAND, RESPAWN, SET_BED and SET_SPAWN.
type ReplyMsg struct {
	Type            string   `json:"type" jsonschema:"enum=REPLY"`
	ProtocolVersion string   `json:"protocol_version"`
	OK              bool     `json:"ok"`
	Lines           []string `json:"lines,omitempty"`
	Code            string   `json:"code,omitempty"`
}

func NewBroadcast(text string) BroadcastMsg {
	return BroadcastMsg{Type: TypeBroadcast, ProtocolVersion: Version, Text: text}
}

func NewReply(ok bool, code string, lines ...string) ReplyMsg {
	return ReplyMsg{Type: TypeReply, ProtocolVersion: Version, OK: ok, Code: code, Lines: lines}
}
