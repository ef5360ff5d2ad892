package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"contesthub/internal/model"
)

func (c *cli) chatCmd() *cobra.Command {
	var to string
	return &cobra.Command{
		Use:   "chat",
		Short: "Direct messages with the school admins (this session only)",
		Long: `chat opens an interactive message log between students and the admin
pool. Messages live in this process only and are gone when chat exits.

Commands inside chat:
  /to <student-id>  address replies to a student (admins)
  /as <email>       log in as another account to answer
  /threads          list conversations by student (admins)
  /show             print your conversation
  /read             mark everything shown as read
  /quit             leave`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := c.identity(); err != nil {
				return err
			}
			conv := c.app.Conversations
			for {
				id := c.app.Session.Identity()
				if id == nil {
					return errNotLoggedIn
				}
				line, err := c.prompt(fmt.Sprintf("%s (%d unread)> ", id.Name, conv.GetUnreadCount()))
				if err != nil {
					return nil
				}
				verb, rest, _ := strings.Cut(line, " ")
				switch verb {
				case "":
				case "/quit":
					return nil
				case "/to":
					to = strings.TrimSpace(rest)
				case "/as":
					password, err := c.prompt("Password: ")
					if err != nil {
						return nil
					}
					if err := c.result(c.app.Session.Login(cmd.Context(), strings.TrimSpace(rest), password)); err != nil {
						fmt.Fprintln(c.out, bad(err.Error()))
					}
				case "/threads":
					for _, th := range conv.GetAllConversations() {
						fmt.Fprintf(c.out, "%s %s (%d unread): %s\n", th.StudentID, th.StudentName, th.UnreadCount, th.LastMessage.Text)
					}
				case "/read":
					var ids []string
					for _, m := range conv.GetMyConversation() {
						ids = append(ids, m.ID)
					}
					fmt.Fprintf(c.out, "%d marked read\n", conv.MarkAsRead(ids...))
				case "/show":
					c.printConversation(conv.GetMyConversation())
				default:
					recipient := to
					if !id.IsAdmin() {
						recipient = model.AdminParty
					} else if recipient == "" {
						fmt.Fprintln(c.out, warn("pick a student first: /to <student-id>"))
						continue
					}
					if _, err := conv.SendMessage(line, recipient); err != nil {
						fmt.Fprintln(c.out, bad(err.Error()))
					}
				}
			}
		},
	}
}

func (c *cli) printConversation(msgs []model.ConversationMessage) {
	for _, m := range msgs {
		mark := " "
		if !m.Read {
			mark = "*"
		}
		fmt.Fprintf(c.out, "%s %s %s: %s\n", mark, faint(clock(m.Timestamp)), m.SenderName, m.Text)
	}
}
