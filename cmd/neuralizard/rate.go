package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Rrens/neuralizard/internal/domain"
)

// parseVote accepts -1, 0, 1 or the words good, bad and neutral.
func parseVote(s string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "good", "up", "+1", "1":
		return 1, nil
	case "bad", "down", "-1":
		return -1, nil
	case "neutral", "0":
		return 0, nil
	}
	return 0, fmt.Errorf("vote must be good, bad, neutral, -1, 0 or 1 (got %q)", s)
}

func newRateCmd() *cobra.Command {
	var (
		score   int
		label   string
		comment string
	)

	cmd := &cobra.Command{
		Use:   "rate MESSAGE_ID VOTE",
		Short: "Rate a message",
		Long:  "Records a rating for a message. VOTE is good, bad or neutral; use -- before a numeric -1.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid message id %q", args[0])
			}
			vote, err := parseVote(args[1])
			if err != nil {
				return err
			}

			rating := &domain.MessageRating{MessageID: id, Vote: vote}
			if cmd.Flags().Changed("score") {
				rating.Score = &score
			}
			if label != "" {
				rating.Label = &label
			}
			if comment != "" {
				rating.Comment = &comment
			}

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.completions.Rate(cmd.Context(), rating); err != nil {
				return fmt.Errorf("rating failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rated message #%d (vote %+d) as rating #%d\n", id, vote, rating.ID)
			return nil
		},
	}

	cmd.Flags().IntVar(&score, "score", 0, "score 1..5")
	cmd.Flags().StringVar(&label, "label", "", "short label")
	cmd.Flags().StringVar(&comment, "comment", "", "free-form comment")
	return cmd
}
