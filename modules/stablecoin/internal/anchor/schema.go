package anchor

import (
	"crypto/sha256"
)

// SchemaVersion is bumped whenever an event layout below changes. Indexed data of another version is not compatible.
const SchemaVersion = 1

type FieldType int

const (
	FieldPublicKey FieldType = iota
	FieldU8
	FieldU64
	FieldI64
	FieldU128
	FieldString
	FieldBool
)

type Field struct {
	Name string
	Type FieldType
}

type EventSchema struct {
	Name          string
	Fields        []Field
	Discriminator [8]byte
}

// Discriminator returns the 8-byte prefix Anchor writes before an event's borsh body.
func Discriminator(name string) [8]byte {
	var d [8]byte
	sum := sha256.Sum256([]byte("event:" + name))
	copy(d[:], sum[:8])
	return d
}

func newEventSchema(name string, fields ...Field) EventSchema {
	return EventSchema{
		Name:          name,
		Fields:        fields,
		Discriminator: Discriminator(name),
	}
}

func pubkey(name string) Field { return Field{Name: name, Type: FieldPublicKey} }
func u8(name string) Field     { return Field{Name: name, Type: FieldU8} }
func u64(name string) Field    { return Field{Name: name, Type: FieldU64} }
func i64(name string) Field    { return Field{Name: name, Type: FieldI64} }
func str(name string) Field    { return Field{Name: name, Type: FieldString} }

// Event names emitted by the stablecoin program.
const (
	EventStablecoinInitialized = "StablecoinInitialized"
	EventTokensMinted          = "TokensMinted"
	EventTokensBurned          = "TokensBurned"
	EventAccountFrozen         = "AccountFrozen"
	EventAccountThawed         = "AccountThawed"
	EventSystemPaused          = "SystemPaused"
	EventSystemUnpaused        = "SystemUnpaused"
	EventRoleUpdated           = "RoleUpdated"
	EventAuthorityTransferred  = "AuthorityTransferred"
	EventBlacklistAdded        = "BlacklistAdded"
	EventBlacklistRemoved      = "BlacklistRemoved"
	EventTokensSeized          = "TokensSeized"
)

// Events is the event schema of the stablecoin program, in declaration order.
var Events = []EventSchema{
	newEventSchema(EventStablecoinInitialized,
		pubkey("config"), pubkey("mint"), pubkey("authority"),
		str("name"), str("symbol"), str("preset"), i64("timestamp"),
	),
	newEventSchema(EventTokensMinted,
		pubkey("config"), pubkey("mint"), pubkey("recipient"), u64("amount"),
		pubkey("minter"), u64("new_total_supply"), i64("timestamp"),
	),
	newEventSchema(EventTokensBurned,
		pubkey("config"), pubkey("mint"), pubkey("burner"), u64("amount"),
		u64("new_total_supply"), i64("timestamp"),
	),
	newEventSchema(EventAccountFrozen,
		pubkey("config"), pubkey("target_account"), pubkey("frozen_by"), i64("timestamp"),
	),
	newEventSchema(EventAccountThawed,
		pubkey("config"), pubkey("target_account"), pubkey("thawed_by"), i64("timestamp"),
	),
	newEventSchema(EventSystemPaused,
		pubkey("config"), pubkey("paused_by"), i64("timestamp"),
	),
	newEventSchema(EventSystemUnpaused,
		pubkey("config"), pubkey("unpaused_by"), i64("timestamp"),
	),
	newEventSchema(EventRoleUpdated,
		pubkey("config"), pubkey("target"), u8("new_roles"), pubkey("updated_by"), i64("timestamp"),
	),
	newEventSchema(EventAuthorityTransferred,
		pubkey("config"), pubkey("old_authority"), pubkey("new_authority"), i64("timestamp"),
	),
	newEventSchema(EventBlacklistAdded,
		pubkey("config"), pubkey("wallet"), str("reason"), pubkey("blacklisted_by"), i64("timestamp"),
	),
	newEventSchema(EventBlacklistRemoved,
		pubkey("config"), pubkey("wallet"), pubkey("removed_by"), i64("timestamp"),
	),
	newEventSchema(EventTokensSeized,
		pubkey("config"), pubkey("from_account"), pubkey("to_account"), u64("amount"),
		pubkey("seized_by"), i64("timestamp"),
	),
}

var (
	eventsByDiscriminator = make(map[[8]byte]EventSchema, len(Events))
	eventsByName          = make(map[string]EventSchema, len(Events))
)

func init() {
	for _, schema := range Events {
		eventsByDiscriminator[schema.Discriminator] = schema
		eventsByName[schema.Name] = schema
	}
}

// EventNames returns the names of all known events.
func EventNames() []string {
	names := make([]string, 0, len(Events))
	for _, schema := range Events {
		names = append(names, schema.Name)
	}
	return names
}

func LookupEvent(name string) (EventSchema, bool) {
	schema, ok := eventsByName[name]
	return schema, ok
}
