package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/logger"
	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/network"
	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/overlay"
	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/server"
)

var errUnknownCommand = errors.New("unknown command")

// command is one parsed stdin line: a frame for the server, a local
// card selection, or quit.
type command struct {
	frame       []byte
	selectIndex int
	local       bool
	quit        bool
}

func parseCommand(line, login string) (command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return command{}, errUnknownCommand
	}
	rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), fields[0]))

	var (
		frame []byte
		err   error
	)
	switch fields[0] {
	case "quit", "exit":
		return command{quit: true}, nil
	case "select":
		n, convErr := strconv.Atoi(rest)
		if convErr != nil || n < 0 {
			return command{}, fmt.Errorf("select needs a card index, got %q", rest)
		}
		return command{selectIndex: n, local: true}, nil
	case network.MsgTypePing, network.MsgTypeStatus:
		frame, err = network.Encode(network.Outbound{Type: fields[0], Timestamp: network.Now()})
	case "chat":
		frame, err = network.NewMessage(network.MsgTypeChat, network.ChatData{Message: rest})
	case "persona":
		frame, err = network.NewMessage(network.MsgTypePersonaSwitch, network.PersonaSwitchData{Persona: rest})
	case "act":
		// act <action> [amount]
		if len(fields) < 2 {
			return command{}, errors.New("act needs an action")
		}
		action := network.PlayerActionData{PlayerID: login, Action: fields[1]}
		if len(fields) > 2 {
			amount, convErr := strconv.ParseInt(fields[2], 10, 64)
			if convErr != nil {
				return command{}, fmt.Errorf("bad amount %q", fields[2])
			}
			action.Amount = amount
		}
		frame, err = network.NewMessage(network.MsgTypePlayerAction, action)
	default:
		return command{}, fmt.Errorf("%w: %s", errUnknownCommand, fields[0])
	}
	if err != nil {
		return command{}, err
	}
	return command{frame: frame}, nil
}

// describe flattens a View into one log line.
func describe(v overlay.View) string {
	var b strings.Builder
	fmt.Fprintf(&b, "phase=%s pot=%d timer=%s", v.Phase, v.Pot, v.Timer.Label)
	if v.Timer.Warning {
		b.WriteString("!")
	}
	if len(v.Community) > 0 {
		labels := make([]string, 0, len(v.Community))
		for _, c := range v.Community {
			labels = append(labels, c.Label)
		}
		fmt.Fprintf(&b, " board=[%s]", strings.Join(labels, " "))
	}
	for _, p := range v.Players {
		cards := make([]string, 0, len(p.Cards))
		for _, c := range p.Cards {
			cards = append(cards, c.Label)
		}
		marker := ""
		if p.Acting {
			marker = "*"
		}
		fmt.Fprintf(&b, " | %s%s %s bet=%d [%s]", marker, p.Name, p.BalanceLabel, p.Bet, strings.Join(cards, " "))
	}
	if v.BettingControls {
		b.WriteString(" | your turn")
	}
	if len(v.Selected) > 0 {
		fmt.Fprintf(&b, " selected=%v", v.Selected)
	}
	return b.String()
}

func main() {
	addr := flag.String("addr", "localhost:8080", "gateway host:port")
	mount := flag.String("mount", "/acey", "overlay mount path")
	login := flag.String("login", "viewer", "viewer login")
	channelName := flag.String("channel", server.DefaultChannel, "channel to join")
	mode := flag.String("mode", "debug", "log mode")
	flag.Parse()

	logger.Init(*mode)
	defer logger.Sync()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	u := url.URL{Scheme: "ws", Host: *addr, Path: *mount}
	header := http.Header{}
	header.Set(server.HeaderLogin, *login)
	header.Set(server.HeaderChannel, *channelName)
	logger.Log.Infof("Connecting to %s as %s in %s", u.String(), *login, *channelName)

	c, _, err := websocket.DefaultDialer.Dial(u.String(), header)
	if err != nil {
		logger.Log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	driver := overlay.NewDriver(*login, clockwork.NewRealClock(),
		overlay.WithRender(func(v overlay.View) { logger.Log.Info(describe(v)) }),
		overlay.WithExpire(func(id string) { logger.Log.Infof("Action timer ran out for %s", id) }),
	)
	defer driver.Close()

	done := make(chan struct{})

	// Read loop
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				logger.Log.Infof("Read error: %v", err)
				return
			}
			msg, err := overlay.ParseMessage(message)
			if err == nil {
				err = driver.Apply(msg)
			}
			if err != nil {
				logger.Log.Warnf("Dropped frame %s: %v", message, err)
				continue
			}
			if msg.Type == network.MsgTypeError {
				logger.Log.Warnf("Server error: %s (%s)", msg.Error, msg.Reason)
			}
		}
	}()

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	logger.Log.Info("Commands: ping, status, chat <text>, persona <name>, act <action> [amount], select <n>, quit")

	for {
		select {
		case <-done:
			return
		case <-interrupt:
			logger.Log.Info("Interrupt received, closing connection.")
			closeConn(c, done)
			return
		case line, ok := <-lines:
			if !ok {
				closeConn(c, done)
				return
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			cmd, err := parseCommand(line, *login)
			if err != nil {
				logger.Log.Warn(err)
				continue
			}
			switch {
			case cmd.quit:
				closeConn(c, done)
				return
			case cmd.local:
				driver.Select(cmd.selectIndex)
			default:
				if err := c.WriteMessage(websocket.TextMessage, cmd.frame); err != nil {
					logger.Log.Errorf("Write error: %v", err)
					return
				}
			}
		}
	}
}

func closeConn(c *websocket.Conn, done <-chan struct{}) {
	err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		logger.Log.Infof("Write close error: %v", err)
	}
	select {
	case <-done:
	case <-time.After(time.Second):
	}
}
