package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"reflect"

	"github.com/invopop/jsonschema"

	"spawncycle.ai/internal/protocol"
)

type message struct {
	file  string
	title string
	desc  string
	typ   reflect.Type
}

var messages = []message{
	{"hello.schema.json", "HELLO", "Client handshake; joins the world as player_name.", reflect.TypeOf(protocol.HelloMsg{})},
	{"welcome.schema.json", "WELCOME", "Server handshake reply with the current world spawn.", reflect.TypeOf(protocol.WelcomeMsg{})},
	{"respawn.schema.json", "RESPAWN", "Client died and respawns; has_bed marks a bed respawn.", reflect.TypeOf(protocol.RespawnMsg{})},
	{"set_bed.schema.json", "SET_BED", "Sets or (without pos) clears the player's bed.", reflect.TypeOf(protocol.SetBedMsg{})},
	{"command.schema.json", "COMMAND", "Runs a spawn cycle command.", reflect.TypeOf(protocol.CommandMsg{})},
	{"set_spawn.schema.json", "SET_SPAWN", "Moves the world spawn outside the cycle.", reflect.TypeOf(protocol.SetSpawnMsg{})},
	{"broadcast.schema.json", "BROADCAST", "Server-wide message.", reflect.TypeOf(protocol.BroadcastMsg{})},
	{"reply.schema.json", "REPLY", "Result of a client request.", reflect.TypeOf(protocol.ReplyMsg{})},
}

func main() {
	var outDir string
	flag.StringVar(&outDir, "out", "schemas", "directory to write the JSON schemas into")
	flag.Parse()

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		log.Fatalf("schemagen: create output dir: %v", err)
	}
	for _, m := range messages {
		if err := writeSchema(filepath.Join(outDir, m.file), buildSchema(m)); err != nil {
			log.Fatalf("schemagen: %s: %v", m.file, err)
		}
	}
}

func buildSchema(m message) *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		DoNotReference: true,
	}
	s := reflector.ReflectFromType(m.typ)
	s.Version = jsonschema.Version
	s.Title = "spawncycle " + m.title
	s.Description = m.desc
	s.AdditionalProperties = &jsonschema.Schema{}
	return s
}

func writeSchema(outPath string, schema *jsonschema.Schema) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}
	return nil
}
