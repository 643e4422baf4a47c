// Package main is the terminal client for the document assistant.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/docquery-ai/document-assistant/internal/config"
	"github.com/docquery-ai/document-assistant/internal/controller"
	"github.com/docquery-ai/document-assistant/internal/library"
	"github.com/docquery-ai/document-assistant/internal/model"
	"github.com/docquery-ai/document-assistant/internal/remote"
	"github.com/docquery-ai/document-assistant/internal/render"
	"github.com/docquery-ai/document-assistant/internal/session"
	"github.com/docquery-ai/document-assistant/internal/storage"
	"github.com/docquery-ai/document-assistant/pkg/logger"
)

func main() {
	document := flag.String("doc", "", "scope the session to one document (filename)")
	flag.Parse()

	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	if err := run(cfg, *document, log); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, document string, log *logger.Logger) error {
	ctx := context.Background()

	durable, err := storage.NewFileStore(filepath.Join(cfg.StateDir, "state.json"))
	if err != nil {
		return err
	}
	ephemeral := storage.NewSessionStore()

	api := remote.NewClient(cfg.APIBaseURL, cfg.RequestTimeout, log)
	scope := session.Resolve(document)
	ctrl := controller.New(scope, api, durable, ephemeral, log)

	fmt.Printf("document assistant (%s scope)\n", scope)

	if changed, err := ctrl.VerifyServerInstance(ctx); err != nil {
		fmt.Println("server unreachable, stored session left untouched")
	} else if changed {
		fmt.Println("server restarted since last visit, starting fresh")
	}

	if conv, err := ctrl.Restore(ctx); err != nil {
		fmt.Println("could not restore previous conversation, try again later")
	} else if conv != nil {
		fmt.Printf("resumed %q (%d messages)\n", conv.Title, len(conv.Messages))
		printConversation(os.Stdout, conv)
	}

	if err := ctrl.History.Load(ctx); err != nil {
		log.Warn("history unavailable", zap.Error(err))
	}
	if err := ctrl.Favorites.Load(ctx); err != nil {
		log.Warn("favorites unavailable", zap.Error(err))
	}
	if err := ctrl.Library.Refresh(ctx); err != nil {
		log.Warn("library unavailable", zap.Error(err))
	}

	poller := library.NewPoller(ctrl.Library, cfg.StatusPollInterval, log, func() {
		if !ctrl.Library.Processing() {
			fmt.Println("\nall documents finished processing")
		}
	})
	poller.Start(ctx)
	defer poller.Stop()

	docsDebounce := library.NewDebouncer(cfg.SearchDebounce)
	defer docsDebounce.Cancel()

	repl(ctx, ctrl, docsDebounce, os.Stdin, os.Stdout)
	return nil
}

func repl(ctx context.Context, ctrl *controller.Controller, docsDebounce *library.Debouncer, in io.Reader, out io.Writer) {
	scanner := bufio.NewScanner(in)
	fmt.Fprintln(out, `type a question, or "help" for commands`)

	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		cmd, arg, _ := strings.Cut(line, " ")
		switch cmd {
		case "quit", "exit":
			return
		case "help":
			printHelp(out)
		case "new":
			if err := ctrl.NewConversation(); err != nil {
				fmt.Fprintln(out, "error:", err)
				continue
			}
			fmt.Fprintln(out, "started a new conversation")
		case "delete":
			if err := ctrl.DeleteCurrent(ctx); err != nil {
				fmt.Fprintln(out, "could not delete:", err)
				continue
			}
			fmt.Fprintln(out, "conversation deleted")
		case "open":
			conv, err := ctrl.Open(ctx, arg)
			if err != nil {
				fmt.Fprintln(out, "could not open:", err)
				continue
			}
			printConversation(out, conv)
		case "pin":
			pinned, err := ctrl.PinCurrent(ctx)
			if err != nil {
				fmt.Fprintln(out, "could not pin:", err)
				continue
			}
			if pinned {
				fmt.Fprintln(out, "conversation pinned")
			} else {
				fmt.Fprintln(out, "conversation unpinned")
			}
		case "rename":
			if err := ctrl.RenameCurrent(ctx, arg); err != nil {
				fmt.Fprintln(out, "could not rename:", err)
				continue
			}
			fmt.Fprintln(out, "conversation renamed")
		case "history":
			printHistory(out, ctrl, arg)
		case "docs":
			// Rapid repeated filters collapse into the last one.
			query := arg
			docsDebounce.Debounce(func() {
				printDocs(out, ctrl, query)
			})
		case "fav":
			fav, err := ctrl.Favorites.Toggle(ctx, arg)
			if err != nil {
				fmt.Fprintln(out, "toggle failed, state unchanged")
				continue
			}
			if fav {
				fmt.Fprintf(out, "%s added to favorites\n", arg)
			} else {
				fmt.Fprintf(out, "%s removed from favorites\n", arg)
			}
		case "export":
			text, err := ctrl.Transcript(ctx)
			if err != nil {
				fmt.Fprintln(out, "could not export:", err)
				continue
			}
			fmt.Fprint(out, text)
		default:
			ask(ctx, out, ctrl, line)
		}
	}
}

func ask(ctx context.Context, out io.Writer, ctrl *controller.Controller, question string) {
	display, err := ctrl.Send(ctx, question)
	switch {
	case errors.Is(err, remote.ErrEmptyQuery):
		fmt.Fprintln(out, "please type a question")
		return
	case errors.Is(err, controller.ErrStaleResponse):
		return
	case err != nil:
		fmt.Fprintln(out, "query failed:", err)
		return
	}
	printDisplay(out, display)
}

func printDisplay(out io.Writer, d *render.Display) {
	if d.Structured {
		for _, section := range d.Sections {
			fmt.Fprintf(out, "\n## %s\n%s\n", section.Title, section.Body)
		}
	} else {
		for _, p := range d.Paragraphs {
			fmt.Fprintf(out, "\n%s\n", p)
		}
	}
	if !d.Relevant {
		fmt.Fprintln(out, "\n(no relevant information found in the documents)")
	}
	if len(d.Citations) > 0 {
		fmt.Fprintln(out, "\nSources:")
		for _, c := range d.Citations {
			fmt.Fprintf(out, "  %s %v %s\n", c.Source, c.Pages, strings.Join(c.Scores, ", "))
		}
	}
	if len(d.FollowUps) > 0 {
		fmt.Fprintln(out, "\nYou could also ask:")
		for _, q := range d.FollowUps {
			fmt.Fprintf(out, "  - %s\n", q)
		}
	}
}

func printConversation(out io.Writer, conv *model.Conversation) {
	for _, msg := range conv.Messages {
		fmt.Fprintf(out, "[%s] %s\n", msg.Sender, msg.Content)
	}
}

func printHistory(out io.Writer, ctrl *controller.Controller, filter string) {
	if err := ctrl.History.Err(); err != nil {
		fmt.Fprintln(out, "history is unavailable:", err)
		return
	}
	items := ctrl.History.Filter(filter)
	if len(items) == 0 {
		fmt.Fprintln(out, "no conversations")
		return
	}
	for _, item := range items {
		pin := ""
		if item.IsPinned {
			pin = "  [pinned]"
		}
		fmt.Fprintf(out, "%s  %s  (%s)%s\n", item.ID, item.Title, item.UpdatedAt.Format("Jan 2, 2006 3:04 PM"), pin)
	}
}

func printDocs(out io.Writer, ctrl *controller.Controller, query string) {
	for _, doc := range ctrl.Library.Search(query) {
		star := " "
		if ctrl.Favorites.IsFavorite(doc.Filename) {
			star = "*"
		}
		fmt.Fprintf(out, "%s %-40s %3d pages  %s\n", star, doc.Filename, doc.PageCount, doc.Status)
	}
}

func printHelp(out io.Writer) {
	fmt.Fprintln(out, `commands:
  <question>        ask in the current conversation
  new               start a new conversation
  open <id>         switch to a conversation
  delete            delete the current conversation
  pin               toggle pinning of the current conversation
  rename <title>    retitle the current conversation
  history [terms]   list conversations, optionally filtered
  docs [query]      filter documents (debounced), * marks favorites
  fav <filename>    toggle a favorite
  export            print the current conversation as text
  quit              exit`)
}
