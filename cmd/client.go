/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/uimarket/uimarket/internal/client"
	"github.com/uimarket/uimarket/types"
	"golang.org/x/term"
)

var clientCmd = &cobra.Command{
	Use:   "client",
	Short: "Editor-side marketplace client",
	Long: `Browse, favorite, upload and insert components from the marketplace.
Requires UIMARKET_API_URL.`,
}

// openSession builds the API client and rehydrates the stored session.
// A failed revalidation is reported but does not stop read-only commands.
func openSession(cmd *cobra.Command) (*client.API, *client.Session, error) {
	if err := cfg.ValidateClient(); err != nil {
		return nil, nil, err
	}
	dir := cfg.Client.SessionDir
	if dir == "" {
		var err error
		if dir, err = client.DefaultSessionDir(); err != nil {
			return nil, nil, err
		}
	}

	api := client.NewAPI(cfg.Client.APIURL)
	session := client.NewSession(dir, api)
	if err := session.Restore(cmd.Context()); err != nil {
		if errors.Is(err, client.ErrSessionLocked) {
			return nil, nil, err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "could not verify session: %v\n", err)
	}
	return api, session, nil
}

func requireSignedIn(session *client.Session) error {
	if session.User() == nil {
		return errors.New("not signed in; run `uimarket client login`")
	}
	return nil
}

func prompt(cmd *cobra.Command, reader *bufio.Reader, label string) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), label+": ")
	line, err := reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func promptPassword(cmd *cobra.Command, reader *bufio.Reader) (string, error) {
	in, ok := cmd.InOrStdin().(*os.File)
	if !ok || !term.IsTerminal(int(in.Fd())) {
		return prompt(cmd, reader, "Password")
	}
	fd := int(in.Fd())
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

var clientRegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and sign in",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, session, err := openSession(cmd)
		if err != nil {
			return err
		}
		reader := bufio.NewReader(cmd.InOrStdin())
		username, err := prompt(cmd, reader, "Username")
		if err != nil {
			return err
		}
		email, err := prompt(cmd, reader, "Email")
		if err != nil {
			return err
		}
		password, err := promptPassword(cmd, reader)
		if err != nil {
			return err
		}

		user, err := session.Register(cmd.Context(), username, email, password)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", user.Username)
		return nil
	},
}

var clientLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and remember the session",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, session, err := openSession(cmd)
		if err != nil {
			return err
		}
		reader := bufio.NewReader(cmd.InOrStdin())
		email, err := prompt(cmd, reader, "Email")
		if err != nil {
			return err
		}
		password, err := promptPassword(cmd, reader)
		if err != nil {
			return err
		}

		user, err := session.Login(cmd.Context(), email, password)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", user.Username)
		return nil
	},
}

var clientLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the session",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, session, err := openSession(cmd)
		if err != nil {
			return err
		}
		if err := session.Logout(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
		return nil
	},
}

var clientWhoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, session, err := openSession(cmd)
		if err != nil {
			return err
		}
		if err := requireSignedIn(session); err != nil {
			return err
		}
		user := session.User()
		fmt.Fprintf(cmd.OutOrStdout(), "%s <%s> (%d favorites)\n", user.Username, user.Email, len(user.Favorites))
		return nil
	},
}

var clientBrowseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Show the whole catalog grouped by category",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showTree(cmd, "Catalog", types.ComponentQuery{Sort: types.SortName})
	},
}

var clientFavoritesCmd = &cobra.Command{
	Use:   "favorites",
	Short: "Show your favorite components",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showTree(cmd, "Favorites", types.ComponentQuery{Sort: types.SortName, FavoritesOnly: true})
	},
}

var searchFlags struct {
	search    string
	category  string
	sort      string
	favorites bool
}

var clientSearchCmd = &cobra.Command{
	Use:   "search [terms]",
	Short: "Search the catalog",
	Args:  cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sortKey, err := types.ParseSortKey(searchFlags.sort)
		if err != nil {
			return err
		}
		search := searchFlags.search
		if search == "" {
			search = strings.Join(args, " ")
		}
		return showTree(cmd, "Results", types.ComponentQuery{
			Search:        search,
			Category:      types.Category(searchFlags.category),
			Sort:          sortKey,
			FavoritesOnly: searchFlags.favorites,
		})
	},
}

func showTree(cmd *cobra.Command, title string, q types.ComponentQuery) error {
	api, session, err := openSession(cmd)
	if err != nil {
		return err
	}
	if q.FavoritesOnly {
		if err := requireSignedIn(session); err != nil {
			return err
		}
	}
	items, err := api.ListComponents(cmd.Context(), q)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), client.CatalogTree(title, items))
	return nil
}

var clientShowCmd = &cobra.Command{
	Use:   "show <component-id>",
	Short: "Show a component and its code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		api, _, err := openSession(cmd)
		if err != nil {
			return err
		}
		component, err := api.GetComponent(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), client.ComponentDetail(component))
		return nil
	},
}

var uploadFlags struct {
	file        string
	name        string
	description string
	category    string
	tags        []string
}

var clientUploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Publish a component; code is read from --file or stdin",
	RunE: func(cmd *cobra.Command, args []string) error {
		api, session, err := openSession(cmd)
		if err != nil {
			return err
		}
		if err := requireSignedIn(session); err != nil {
			return err
		}

		var code []byte
		if uploadFlags.file != "" {
			code, err = os.ReadFile(uploadFlags.file)
		} else {
			code, err = io.ReadAll(cmd.InOrStdin())
		}
		if err != nil {
			return fmt.Errorf("read code: %w", err)
		}

		component, err := api.CreateComponent(cmd.Context(), client.NewUpload{
			Name:        uploadFlags.name,
			Description: uploadFlags.description,
			Category:    types.Category(uploadFlags.category),
			Tags:        uploadFlags.tags,
			Code:        string(code),
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Published %s (%s)\n", component.Name, component.ID)
		return nil
	},
}

var clientFavoriteCmd = &cobra.Command{
	Use:   "favorite <component-id>",
	Short: "Toggle a component in your favorites",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		api, session, err := openSession(cmd)
		if err != nil {
			return err
		}
		if err := requireSignedIn(session); err != nil {
			return err
		}
		favorite, err := api.ToggleFavorite(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if favorite {
			fmt.Fprintln(cmd.OutOrStdout(), "Added to favorites")
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "Removed from favorites")
		}
		return nil
	},
}

var insertFlags struct {
	file string
	line int
}

var clientInsertCmd = &cobra.Command{
	Use:   "insert <component-id>",
	Short: "Insert a component's code into a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		api, _, err := openSession(cmd)
		if err != nil {
			return err
		}
		component, err := api.GetComponent(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if err := client.InsertIntoFile(insertFlags.file, component.Code, insertFlags.line); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Inserted %s into %s\n", component.Name, insertFlags.file)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(clientCmd)
	clientCmd.AddCommand(
		clientRegisterCmd,
		clientLoginCmd,
		clientLogoutCmd,
		clientWhoamiCmd,
		clientBrowseCmd,
		clientFavoritesCmd,
		clientSearchCmd,
		clientShowCmd,
		clientUploadCmd,
		clientFavoriteCmd,
		clientInsertCmd,
	)

	clientSearchCmd.Flags().StringVar(&searchFlags.search, "search", "", "search terms (defaults to the positional arguments)")
	clientSearchCmd.Flags().StringVar(&searchFlags.category, "category", "", "restrict to a category")
	clientSearchCmd.Flags().StringVar(&searchFlags.sort, "sort", "newest", "newest, name or popular")
	clientSearchCmd.Flags().BoolVar(&searchFlags.favorites, "favorites", false, "only your favorites")

	clientUploadCmd.Flags().StringVar(&uploadFlags.file, "file", "", "file holding the component code (default stdin)")
	clientUploadCmd.Flags().StringVar(&uploadFlags.name, "name", "", "component name")
	clientUploadCmd.Flags().StringVar(&uploadFlags.description, "description", "", "component description")
	clientUploadCmd.Flags().StringVar(&uploadFlags.category, "category", string(types.CategoryOther), "component category")
	clientUploadCmd.Flags().StringSliceVar(&uploadFlags.tags, "tags", nil, "comma-separated tags")
	_ = clientUploadCmd.MarkFlagRequired("name")
	_ = clientUploadCmd.MarkFlagRequired("description")

	clientInsertCmd.Flags().StringVar(&insertFlags.file, "file", "", "document to insert into")
	clientInsertCmd.Flags().IntVar(&insertFlags.line, "line", 0, "1-based line to insert before (0 appends)")
	_ = clientInsertCmd.MarkFlagRequired("file")
}

