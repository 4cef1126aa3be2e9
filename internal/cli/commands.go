package cli

import (
	"github.com/spf13/cobra"

	"github.com/Keksclan/rawrfetch/model"
	"github.com/Keksclan/rawrfetch/source"
)

func (c *CLI) newCreatorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "creator <service> <id>",
		Short: "Show a creator profile",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cr, err := c.engine.Creator(cmd.Context(), args[0], args[1])
			if err != nil {
				return userError(err)
			}
			return c.print(cr)
		},
	}
}

func (c *CLI) newPostCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "post <service> <creator> <post>",
		Short: "Show a single post",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.engine.Post(cmd.Context(), args[0], args[1], args[2])
			if err != nil {
				return userError(err)
			}
			return c.print(p)
		},
	}
}

func (c *CLI) newPostsCmd() *cobra.Command {
	var pages int
	cmd := &cobra.Command{
		Use:   "posts <service> <creator>",
		Short: "List a creator's posts",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cur := c.engine.Posts(args[0], args[1])
			for range max(pages, 1) {
				if !cur.HasMore() {
					break
				}
				if _, err := c.engine.LoadMorePosts(cmd.Context(), args[0], args[1]); err != nil {
					return userError(err)
				}
			}
			return c.print(listing{Posts: cur.Items(), Offset: cur.Offset(), HasMore: cur.HasMore()})
		},
	}
	cmd.Flags().IntVar(&pages, "pages", 1, "number of pages to load")
	return cmd
}

func (c *CLI) newRecentCmd() *cobra.Command {
	var (
		pages int
		src   string
	)
	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List recent posts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := source.Parse(src)
			if err != nil {
				return err
			}
			c.engine.SwitchSource(s)

			cur := c.engine.Recent()
			for range max(pages, 1) {
				if !cur.HasMore() {
					break
				}
				if _, err := c.engine.LoadRecent(cmd.Context()); err != nil {
					return userError(err)
				}
			}
			return c.print(listing{Source: s.String(), Posts: cur.Items(), Offset: cur.Offset(), HasMore: cur.HasMore()})
		},
	}
	cmd.Flags().IntVar(&pages, "pages", 1, "number of pages to load")
	cmd.Flags().StringVar(&src, "source", "primary", "content source: primary or secondary")
	return cmd
}

func (c *CLI) newSearchCmd() *cobra.Command {
	var service string
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search creators by ID or name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			found, err := c.engine.SearchCreators(cmd.Context(), args[0], service)
			if err != nil {
				return userError(err)
			}
			if found == nil {
				found = []model.Creator{}
			}
			return c.print(found)
		},
	}
	cmd.Flags().StringVar(&service, "service", "all", `service to search, "all" for every service`)
	return cmd
}

func (c *CLI) newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and persist the cache",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "stats",
			Short: "Show cache table sizes",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				stats := map[string]int{}
				for _, t := range c.engine.Registry().Tables() {
					stats[t.Name()] = t.Len()
				}
				return c.print(stats)
			},
		},
		&cobra.Command{
			Use:   "flush",
			Short: "Write the cache to the configured store",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return c.engine.Flush(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "history",
			Short: "Show recent searches",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				return c.print(c.engine.SearchHistory())
			},
		},
	)
	return cmd
}

type listing struct {
	Source  string       `json:"source,omitempty"`
	Posts   []model.Post `json:"posts"`
	Offset  int          `json:"offset"`
	HasMore bool         `json:"has_more"`
}
