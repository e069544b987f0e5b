package main

import (
	"fmt"

	"solidarity/internal/utils"

	"github.com/urfave/cli/v2"
)

// idsCommand prints ids in the formats the service generates, handy for
// setting X-Request-Id by hand or grepping logs for a notification.
var idsCommand = &cli.Command{
	Name:  "ids",
	Usage: "Generate request or notification ids",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:    "count",
			Aliases: []string{"c"},
			Usage:   "Number of IDs to generate",
			Value:   1,
		},
		&cli.StringFlag{
			Name:  "kind",
			Usage: "request or notification",
			Value: "request",
		},
	},
	Action: func(c *cli.Context) error {
		var generate func() string
		switch c.String("kind") {
		case "request":
			generate = utils.RequestID
		case "notification":
			generate = utils.NotificationID
		default:
			return fmt.Errorf("unknown id kind %q", c.String("kind"))
		}

		for range c.Int("count") {
			fmt.Println(generate())
		}
		return nil
	},
}
