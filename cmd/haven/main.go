package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/havenchat/haven-go/internal/api"
	"github.com/havenchat/haven-go/internal/config"
	"github.com/havenchat/haven-go/internal/journal"
	"github.com/havenchat/haven-go/internal/logger"
	"github.com/havenchat/haven-go/internal/review"
	"github.com/havenchat/haven-go/internal/session"
	"github.com/havenchat/haven-go/internal/transcript"
)

func main() {
	// .env is optional; real env vars win
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger.SetLevel(cfg.Log.Level)

	userID := strings.TrimSpace(os.Getenv("HAVEN_USER_ID"))
	if userID == "" {
		fmt.Fprintln(os.Stderr, "HAVEN_USER_ID must be set; sessions belong to a user identity")
		os.Exit(1)
	}

	client := api.NewClient(cfg.Service)
	jnl := journal.New(cfg.Journal)
	defer jnl.Close()

	sess := session.New(client, jnl, userID)
	browser := review.NewBrowser(client, userID)

	fmt.Println("haven — type a message to talk.")
	fmt.Println("commands: /end  close the session and show its summary")
	fmt.Println("          /history  list past sessions, /show <id> for one of them")
	fmt.Println("          /quit  leave without closing")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "/quit":
			return
		case line == "/end":
			if endSession(sess) {
				return
			}
		case line == "/history":
			showHistory(browser)
		case strings.HasPrefix(line, "/show "):
			showSession(browser, strings.TrimSpace(strings.TrimPrefix(line, "/show ")))
		default:
			sendTurn(sess, line)
		}
	}
}

func sendTurn(sess *session.Session, line string) {
	if err := sess.SendTurn(context.Background(), line); err != nil {
		fmt.Println("!", err)
		return
	}
	last, ok := sess.Log().Last()
	if !ok {
		return
	}
	switch last.Role {
	case transcript.RoleAssistant:
		fmt.Println(last.Content)
	case transcript.RoleSystem:
		fmt.Println("!", last.Content)
	case transcript.RoleUser:
		// the send was a no-op or the reply never landed; nothing to print
	}
}

// endSession closes the live session and prints its summary. Returns true once
// the session is closed and the loop should exit.
func endSession(sess *session.Session) bool {
	summary, err := sess.End(context.Background())
	if err != nil {
		fmt.Println("!", err)
		return false
	}

	fmt.Println("\nsession summary")
	fmt.Println("  emotions:", strings.Join(summary.Emotions, ", "))
	fmt.Println("  topics:  ", strings.Join(summary.Topics, ", "))
	fmt.Println()
	fmt.Println(summary.Narrative)
	return true
}

func showHistory(browser *review.Browser) {
	browser.Refresh(context.Background())
	sessions := browser.Sessions()
	if len(sessions) == 0 {
		fmt.Println("no sessions yet")
		return
	}
	for _, s := range sessions {
		fmt.Printf("  [%d] %s — %s\n", s.ID, s.StartTime.Format("Jan 2, 2006 3:04 PM"), strings.Join(s.Topics, ", "))
	}
}

func showSession(browser *review.Browser, rawID string) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		fmt.Println("! usage: /show <id>")
		return
	}
	if !browser.Select(id) {
		fmt.Println("! no such session; run /history first")
		return
	}
	s, _ := browser.Selected()

	fmt.Printf("session %d — %s\n", s.ID, s.StartTime.Format("Jan 2, 2006 3:04 PM"))
	fmt.Println("  emotions:", strings.Join(s.Emotions, ", "))
	fmt.Println("  topics:  ", strings.Join(s.Topics, ", "))
	fmt.Println()
	fmt.Println(s.Summary)
	fmt.Println()
	for _, pair := range s.Conversation {
		speaker := pair[0]
		if speaker == "human" {
			speaker = "you"
		}
		fmt.Printf("  %s: %s\n", speaker, pair[1])
	}
}
