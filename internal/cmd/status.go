package cmd

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/felixgeelhaar/authflow/internal/log"
	"github.com/felixgeelhaar/authflow/internal/session"
	"github.com/felixgeelhaar/authflow/internal/tui"
)

// statusView is the JSON form of a record. The token itself is never
// printed.
type statusView struct {
	Authenticated    bool          `json:"authenticated"`
	User             *session.User `json:"user,omitempty"`
	TokenFingerprint string        `json:"token_fingerprint,omitempty"`
	Loading          bool          `json:"loading,omitempty"`
	Error            string        `json:"error,omitempty"`
	Message          string        `json:"message,omitempty"`
}

func newStatusView(rec session.Record) statusView {
	return statusView{
		Authenticated:    rec.IsAuthenticated,
		User:             rec.User,
		TokenFingerprint: log.Fingerprint(rec.Token),
		Loading:          rec.IsLoading,
		Error:            rec.Error,
		Message:          rec.Message,
	}
}

func newStatusCmd(a *app) *cobra.Command {
	var (
		validate bool
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the stored session",
		Long: `Show the session restored from the store. Without --validate this is
the optimistic view: a stored token counts as signed in until the API
says otherwise.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.session(cmd.Context())
			if err != nil {
				return err
			}

			rec := c.Machine().State()
			var validateErr error
			if validate && rec.Token != "" {
				rec, validateErr = c.Validate(cmd.Context())
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(newStatusView(rec)); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(out, tui.RenderRecord(rec, tui.StylesFor(out)))
			}

			if validateErr != nil {
				return userFacing(validateErr)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&validate, "validate", false, "confirm the stored token with the API")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func newWatchCmd(a *app) *cobra.Command {
	var validate bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Live view of the session",
		Long: `Open a live view of the session. Keys: v validate, o logout,
c clear notices, q quit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := a.session(ctx)
			if err != nil {
				return err
			}

			updates, stop := tui.Follow(c.Machine())
			defer stop()

			model := tui.NewStatusModel(ctx, c.Machine().State(), updates, c)
			program := tea.NewProgram(model,
				tea.WithContext(ctx),
				tea.WithInput(cmd.InOrStdin()),
				tea.WithOutput(cmd.OutOrStdout()),
			)

			var startup func(context.Context)
			if validate {
				startup = func(ctx context.Context) {
					if _, err := c.Validate(ctx); err != nil {
						a.logger.Debug("startup validation failed", "error", err)
					}
				}
			}

			err = runAlongside(ctx, func() error {
				_, err := program.Run()
				return err
			}, startup)
			if err != nil {
				if stderrors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
					return nil
				}
				if stderrors.Is(err, context.Canceled) {
					return nil
				}
				return fmt.Errorf("watch view failed: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&validate, "validate", false, "validate the stored token when the view opens")
	return cmd
}

// runAlongside runs side concurrently with main. When main returns, side's
// context is cancelled and runAlongside waits for it, so side never outlives
// the resources main's caller releases next.
func runAlongside(ctx context.Context, main func() error, side func(context.Context)) error {
	if side == nil {
		return main()
	}
	sideCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var g errgroup.Group
	g.Go(func() error {
		side(sideCtx)
		return nil
	})
	err := main()
	cancel()
	_ = g.Wait()
	return err
}
