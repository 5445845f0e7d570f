package wire

// Builders for every frame in the catalog. Field names are wire contract;
// changing one breaks interop with older builds.

// NewHello announces a participant to the session host.
func NewHello(playerName, role string) *Message {
	return New(TypeHello).
		Set("player_name", playerName).
		Set("role", role)
}

// NewHelloAck accepts a HELLO.
func NewHelloAck(playerName string) *Message {
	return New(TypeHelloAck).
		Set("player_name", playerName).
		Set("status", "OK")
}

// NewPokemonSelect announces the sender's chosen Pokémon.
func NewPokemonSelect(number int, name string) *Message {
	return New(TypePokemonSelect).
		Set("pokemon_number", number).
		Set("pokemon_name", name)
}

func NewPokemonSelectAck() *Message {
	return New(TypePokemonSelectAck).Set("status", "OK")
}

func NewReady() *Message {
	return New(TypeReady).Set("status", "READY")
}

func NewReadyAck() *Message {
	return New(TypeReadyAck).Set("status", "OK")
}

// NewBattleStart names the player who moves first.
func NewBattleStart(firstPlayer string) *Message {
	return New(TypeBattleStart).Set("first_player", firstPlayer)
}

// NewAttack carries the attacker's computed damage and — crucially — the
// explicit next-turn player. The receiver adopts these values rather than
// toggling a local turn flag, so redelivered duplicates are harmless.
func NewAttack(attacker, moveName, moveType string, damage, turnNumber int, nextTurnPlayer string) *Message {
	return New(TypeAttack).
		Set("attacker", attacker).
		Set("move_name", moveName).
		Set("move_type", moveType).
		Set("damage", damage).
		Set("turn_number", turnNumber).
		Set("next_turn_player", nextTurnPlayer)
}

// NewAttackAck reports the defender's resulting HP back to the attacker.
// turn_number lets the attacker key the acknowledgment to the right turn;
// a late ack for an old turn must not seed the next turn's quorum.
func NewAttackAck(defenderHP int, sender string, turnNumber int) *Message {
	return New(TypeAttackAck).
		Set("defender_hp", defenderHP).
		Set("sender", sender).
		Set("turn_number", turnNumber).
		Set("status", "OK")
}

func NewBattleResult(winner, loser string) *Message {
	return New(TypeBattleResult).
		Set("winner", winner).
		Set("loser", loser)
}

func NewBattleEnd(reason string) *Message {
	return New(TypeBattleEnd).Set("reason", reason)
}

// NewBattleState carries a serialized battle snapshot, relayed to spectators.
func NewBattleState(snapshot string) *Message {
	return New(TypeBattleState).Set("battle_state", snapshot)
}

// NewSpectatorSync tells the other primary where a newly registered
// spectator can be reached, so both sides relay to it directly.
func NewSpectatorSync(name, addr string) *Message {
	return New(TypeSpectatorSync).
		Set("spectator_name", name).
		Set("spectator_addr", addr)
}

// NewChatMessage carries free text and an optional sticker id.
func NewChatMessage(sender, text, sticker string) *Message {
	m := New(TypeChatMessage).
		Set("sender", sender).
		Set("message", text)
	if sticker != "" {
		m.Set("sticker", sticker)
	}
	return m
}

func NewDisconnect(playerName, reason string) *Message {
	return New(TypeDisconnect).
		Set("player_name", playerName).
		Set("reason", reason)
}

func NewError(code, message string) *Message {
	return New(TypeError).
		Set("error_code", code).
		Set("error_message", message)
}
