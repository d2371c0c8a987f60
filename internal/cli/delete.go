package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/panelport/internal/logging"
	"github.com/hupe1980/panelport/internal/savedobject"
)

func newDeleteCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <type> <id>",
		Short: "Delete one saved object",
		Long: `Delete removes a single saved object. Deleting an object that does
not exist only prints a warning.`,
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: completeTypes,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(cmd, args[0], args[1])
		},
	}

	return cmd
}

func runDelete(cmd *cobra.Command, typeArg, id string) error {
	t, err := savedobject.ParseType(typeArg)
	if err != nil {
		return &ExitError{Code: ExitUsage, Err: err}
	}

	s, err := newSession(cmd)
	if err != nil {
		return err
	}

	err = s.client.Delete(cmd.Context(), t, id)

	switch {
	case errors.Is(err, savedobject.ErrNotFound):
		s.logger.Warn("nothing to delete", logging.Object(savedobject.Key{Type: t, ID: id}))
		printf(cmd, "%s/%s does not exist\n", t, id)

		return nil
	case err != nil:
		return runtimeError(fmt.Errorf("deleting %s/%s: %w", t, id, err))
	}

	printf(cmd, "deleted %s/%s\n", t, id)

	return nil
}
