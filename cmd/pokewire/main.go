package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pokewire/pokewire/internal/battle"
	"github.com/pokewire/pokewire/internal/chat"
	"github.com/pokewire/pokewire/internal/config"
	"github.com/pokewire/pokewire/internal/dex"
	"github.com/pokewire/pokewire/internal/peer"
	"github.com/pokewire/pokewire/internal/reliable"
	"github.com/pokewire/pokewire/internal/transport"
	"github.com/pokewire/pokewire/internal/wire"
)

var rootCmd = &cobra.Command{
	Use:   "pokewire",
	Short: "Peer-to-peer Pokémon battles over UDP",
	Long: `pokewire — turn-based battles between two peers, no server.

Each side runs its own copy of the battle; a sequence-numbered
acknowledgment layer keeps the two copies in agreement across a lossy,
reordering, duplicating network.`,
}

// ─── host ────────────────────────────────────────────────────────────────────

var hostCmd = &cobra.Command{
	Use:   "host",
	Short: "Host a battle and wait for a challenger",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPeer(cmd, wire.RoleHost, "")
	},
}

// ─── join ────────────────────────────────────────────────────────────────────

var joinCmd = &cobra.Command{
	Use:   "join <host:port>",
	Short: "Join a hosted battle",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPeer(cmd, wire.RoleJoiner, args[0])
	},
}

// ─── spectate ────────────────────────────────────────────────────────────────

var spectateCmd = &cobra.Command{
	Use:   "spectate <host:port>",
	Short: "Watch a battle without playing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPeer(cmd, wire.RoleSpectator, args[0])
	},
}

func runPeer(cmd *cobra.Command, role, hostAddr string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		cfg.ListenPort = port
	}
	if data, _ := cmd.Flags().GetString("data"); data != "" {
		cfg.DataPath = data
	}
	name, _ := cmd.Flags().GetString("name")
	if name == "" {
		name = fmt.Sprintf("Trainer-%d", os.Getpid()%1000)
	}

	db, err := dex.Load(cfg.DataPath)
	if err != nil {
		return err
	}

	tr, err := transport.ListenUDP(cfg.ListenAddr(), cfg.BufferSize)
	if err != nil {
		return err
	}

	p, err := peer.New(peer.Config{
		Name:      name,
		Role:      role,
		Transport: tr,
		Dex:       db,
		Reliable: reliable.Config{
			AckTimeout:      cfg.AckTimeout,
			RetransmitEvery: cfg.RetransmitEvery,
			MaxRetries:      cfg.MaxRetries,
			DedupBound:      cfg.DedupBound,
		},
		ReceiveTimeout: cfg.ReceiveTimeout,
	})
	if err != nil {
		return err
	}
	p.Start()
	defer p.Stop()

	fmt.Printf("\n  pokewire — %s\n", role)
	fmt.Printf("  Name      : %s\n", name)
	fmt.Printf("  Listening : %s\n", tr.LocalAddr())
	fmt.Printf("  Pokédex   : %d entries\n\n", db.Count())

	if hostAddr != "" {
		if err := p.Connect(hostAddr); err != nil {
			return err
		}
		fmt.Printf("Connecting to %s...\n", hostAddr)
	} else {
		fmt.Println("Waiting for a challenger...")
	}

	// Print protocol events as they arrive.
	go func() {
		for ev := range p.Events() {
			fmt.Printf("\n* %s\n> ", ev.Text)
		}
	}()

	if role != wire.RoleSpectator {
		go console(p, db)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	p.Disconnect("quit")
	fmt.Println("\nSession over.")
	return nil
}

// console reads player commands from stdin. A bare number picks a Pokémon
// during selection or a move during battle.
func console(p *peer.Peer, db *dex.Dex) {
	printHelp()
	fmt.Print("> ")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			fmt.Print("> ")
			continue
		}
		switch {
		case line == "/help":
			printHelp()
		case line == "/pokedex":
			for _, entry := range db.All() {
				fmt.Printf("  %s\n", entry)
			}
		case line == "/ready":
			if err := p.Ready(); err != nil {
				fmt.Printf("error: %v\n", err)
			}
		case line == "/moves":
			printMoves(p)
		case line == "/status":
			printStatus(p)
		case line == "/log":
			if b := p.Battle(); b != nil {
				for _, entry := range b.LogLines() {
					fmt.Printf("  %s\n", entry)
				}
			}
		case line == "/stickers":
			fmt.Print(chat.StickerList())
		case strings.HasPrefix(line, "/chat "):
			text, sticker := splitSticker(strings.TrimPrefix(line, "/chat "))
			if err := p.SendChat(text, sticker); err != nil {
				fmt.Printf("error: %v\n", err)
			}
		case line == "/forfeit":
			if err := p.Forfeit(); err != nil {
				fmt.Printf("error: %v\n", err)
			}
		case line == "/quit":
			p.Disconnect("quit")
			os.Exit(0)
		default:
			number, err := strconv.Atoi(line)
			if err != nil {
				fmt.Printf("unknown command: %s (try /help)\n", line)
				break
			}
			handleNumber(p, number)
		}
		fmt.Print("> ")
	}
}

// handleNumber interprets a bare number by phase: dex number before the
// battle, move index (1-based) during it.
func handleNumber(p *peer.Peer, number int) {
	if b := p.Battle(); b != nil && b.Active() {
		if err := p.Attack(number - 1); err != nil {
			fmt.Printf("error: %v\n", err)
		}
		return
	}
	if err := p.SelectPokemon(number); err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	fmt.Println("Pokémon selected. Type /ready when set.")
}

func printMoves(p *peer.Peer) {
	b := p.Battle()
	if b == nil {
		fmt.Println("no active battle")
		return
	}
	mine := b.PokemonOf(peerPlayerName(p, b))
	if mine == nil {
		return
	}
	for i, m := range mine.Moves {
		fmt.Printf("  %d. %s\n", i+1, m)
	}
}

func printStatus(p *peer.Peer) {
	b := p.Battle()
	if b == nil {
		fmt.Println("no active battle")
		return
	}
	for _, side := range []struct {
		name string
		pok  *battle.Pokemon
	}{
		{b.Player1Name, b.Player1},
		{b.Player2Name, b.Player2},
	} {
		fmt.Printf("  %s: %s %d/%d HP (%.0f%%)\n",
			side.name, side.pok.Name, side.pok.CurrentHP, side.pok.MaxHP, side.pok.HPPercent())
	}
	if current := b.CurrentTurnPlayer(); current != "" {
		fmt.Printf("  %s to move\n", current)
	}
}

func peerPlayerName(p *peer.Peer, b *battle.Battle) string {
	if b.Player1Name == p.PeerName() {
		return b.Player2Name
	}
	return b.Player1Name
}

// splitSticker peels a trailing ":N" sticker marker off a chat line.
func splitSticker(text string) (string, string) {
	idx := strings.LastIndex(text, ":")
	if idx < 0 {
		return text, ""
	}
	candidate := strings.TrimSpace(text[idx+1:])
	if chat.ValidSticker(candidate) {
		return strings.TrimSpace(text[:idx]), candidate
	}
	return text, ""
}

func printHelp() {
	fmt.Println(`Commands:
  <number>        choose a Pokémon (before battle) or a move (during)
  /pokedex        list available Pokémon
  /ready          lock in your choice
  /moves          list your moves
  /status         show both combatants' HP
  /log            show the battle log
  /chat <msg>     send a chat line (append :<id> for a sticker)
  /stickers       list stickers
  /forfeit        concede the battle
  /quit           leave the session`)
}

func init() {
	for _, cmd := range []*cobra.Command{hostCmd, joinCmd, spectateCmd} {
		cmd.Flags().Int("port", 0, "UDP listen port (0 = POKEWIRE_PORT or 5000)")
		cmd.Flags().String("name", "", "Player name")
		cmd.Flags().String("data", "", "Pokémon CSV path (default POKEWIRE_DATA or data/pokemon.csv)")
	}
	rootCmd.AddCommand(hostCmd, joinCmd, spectateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
