package client

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/tree"
	"github.com/uimarket/uimarket/types"
)

const favoriteMark = "★"

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	categoryStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	favoriteStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	codeStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// CatalogTree renders components grouped by category. Categories with no
// components are left out; the grouping follows types.Categories, with any
// unrecognised category appended last.
func CatalogTree(title string, items []types.Component) string {
	root := tree.Root(titleStyle.Render(title)).Enumerator(tree.RoundedEnumerator)
	if len(items) == 0 {
		return root.Child(mutedStyle.Render("(no components)")).String()
	}

	groups := map[types.Category][]types.Component{}
	order := append([]types.Category(nil), types.Categories...)
	for _, item := range items {
		if _, ok := groups[item.Category]; !ok && !item.Category.Valid() {
			order = append(order, item.Category)
		}
		groups[item.Category] = append(groups[item.Category], item)
	}

	for _, category := range order {
		members := groups[category]
		if len(members) == 0 {
			continue
		}
		branch := tree.Root(categoryStyle.Render(fmt.Sprintf("%s (%d)", category, len(members)))).
			Enumerator(tree.RoundedEnumerator)
		for _, item := range members {
			branch.Child(componentLine(item))
		}
		root.Child(branch)
	}
	return root.String()
}

func componentLine(c types.Component) string {
	line := fmt.Sprintf("%s %s", c.Name, mutedStyle.Render(shortID(c)))
	if c.IsFavorite != nil && *c.IsFavorite {
		line = favoriteStyle.Render(favoriteMark) + " " + line
	}
	return line
}

func shortID(c types.Component) string {
	id := c.ID.String()
	return "[" + id[:8] + "]"
}

// ComponentDetail renders a single component with its code.
func ComponentDetail(c types.Component) string {
	var b strings.Builder
	name := titleStyle.Render(c.Name)
	if c.IsFavorite != nil && *c.IsFavorite {
		name = favoriteStyle.Render(favoriteMark) + " " + name
	}
	fmt.Fprintln(&b, name)
	fmt.Fprintln(&b, mutedStyle.Render(fmt.Sprintf("%s · %s · by %s", c.ID, c.Category, c.Author.Username)))
	if len(c.Tags) > 0 {
		fmt.Fprintln(&b, mutedStyle.Render("tags: "+strings.Join(c.Tags, ", ")))
	}
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, c.Description)
	fmt.Fprintln(&b, codeStyle.Render(c.Code))
	return b.String()
}
