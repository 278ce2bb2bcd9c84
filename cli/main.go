package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Styling
var (
	docStyle = lipgloss.NewStyle().Margin(1, 2)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#0a84ff")).
			Padding(0, 1)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#30d158")).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#ff453a")).
			Padding(0, 1)
)

// Model defines the application state
type Model struct {
	mainMenu    list.Model
	statusView  table.Model
	searchList  list.Model
	queryInput  textinput.Model
	spinner     spinner.Model
	client      *ApiClient
	answer      *QueryResponse
	stats       *DocumentStats
	loading     bool
	currentView string
	error       string
	notice      string
}

// item represents a list item
type item struct {
	title, desc string
}

// FilterValue implements list.Item interface
func (i item) FilterValue() string { return i.title }

// Title implements list.Item interface
func (i item) Title() string { return i.title }

// Description implements list.Item interface
func (i item) Description() string { return i.desc }

// Initialize the model
func initialModel() Model {
	// Initialize spinner
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	// Initialize main menu items
	items := []list.Item{
		item{title: "Ask a Question", desc: "Route a question to the specialist agents"},
		item{title: "System Status", desc: "View agent states, queues and the knowledge base"},
		item{title: "Search Documents", desc: "Search the ingested document corpus"},
		item{title: "Ingest Documents", desc: "Load documents and share them with the agents"},
		item{title: "Reset Conversations", desc: "Clear agent memory and the knowledge base"},
		item{title: "Exit", desc: "Exit the application"},
	}

	// Initialize main menu
	mainMenu := list.New(items, list.NewDefaultDelegate(), 0, 0)
	mainMenu.Title = "Foreman Console"

	// Initialize status view
	columns := []table.Column{
		{Title: "Agent", Width: 12},
		{Title: "State", Width: 12},
		{Title: "Queries", Width: 8},
		{Title: "Docs", Width: 6},
		{Title: "Insights", Width: 9},
		{Title: "Queue", Width: 6},
	}
	statusTable := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(7),
	)

	// Initialize search result list
	searchList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	searchList.Title = "Search Results"

	// Initialize text input
	ti := textinput.New()
	ti.Placeholder = "Ask about stock, operations, calculations, or quality..."
	ti.CharLimit = 512
	ti.Width = 64

	// Initialize API client
	client := NewApiClient()

	m := Model{
		mainMenu:    mainMenu,
		statusView:  statusTable,
		searchList:  searchList,
		queryInput:  ti,
		spinner:     s,
		client:      client,
		currentView: "main",
	}
	if !client.Available {
		m.error = fmt.Sprintf("Service at %s is not reachable", client.BaseURL)
	}
	return m
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tea.EnterAltScreen)
}

// Update handles UI updates
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		m.mainMenu.SetSize(msg.Width-h, msg.Height-v)
		m.searchList.SetSize(msg.Width-h, msg.Height-v-4)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "q":
			if m.currentView == "main" {
				return m, tea.Quit
			}
		case "enter":
			return m.handleEnter()
		case "esc":
			if m.currentView != "main" {
				m.currentView = "main"
				m.error = ""
				m.notice = ""
				m.queryInput.Blur()
			}
			return m, nil
		case "r":
			if m.currentView == "status" {
				m.loading = true
				return m, fetchStatus(m.client)
			}
		}

	case answerMsg:
		m.loading = false
		m.answer = msg.resp
		return m, nil

	case statusMsg:
		m.loading = false
		m.statusView.SetRows(statusRows(msg.status))
		return m, nil

	case searchMsg:
		m.loading = false
		m.searchList.SetItems(convertHitsToItems(msg.hits))
		if len(msg.hits) == 0 {
			m.notice = "No documents matched"
		}
		return m, nil

	case statsMsg:
		m.stats = msg.stats
		return m, nil

	case ingestMsg:
		m.loading = false
		m.notice = fmt.Sprintf("Ingested: %d insight tasks enqueued, %d paths failed",
			msg.result.TasksEnqueued, len(msg.result.Failed))
		for path, reason := range msg.result.Failed {
			m.notice += fmt.Sprintf("\n  %s: %s", path, reason)
		}
		return m, nil

	case errorMsg:
		m.loading = false
		m.error = msg.err
		return m, nil

	case confirmMsg:
		m.loading = false
		m.error = ""
		m.notice = msg.message
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	switch m.currentView {
	case "main":
		m.mainMenu, cmd = m.mainMenu.Update(msg)
	case "status":
		m.statusView, cmd = m.statusView.Update(msg)
	case "search":
		if m.queryInput.Focused() {
			m.queryInput, cmd = m.queryInput.Update(msg)
		} else {
			m.searchList, cmd = m.searchList.Update(msg)
		}
	case "ask", "ingest":
		m.queryInput, cmd = m.queryInput.Update(msg)
	}

	return m, cmd
}

// handleEnter dispatches the enter key per view.
func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	switch m.currentView {
	case "main":
		selected, ok := m.mainMenu.SelectedItem().(item)
		if !ok {
			return m, nil
		}
		m.error = ""
		m.notice = ""
		switch selected.title {
		case "Exit":
			return m, tea.Quit
		case "Ask a Question":
			m.currentView = "ask"
			m.answer = nil
			m.queryInput.Placeholder = "Ask about stock, operations, calculations, or quality..."
			m.queryInput.SetValue("")
			m.queryInput.Focus()
		case "System Status":
			m.currentView = "status"
			m.loading = true
			return m, fetchStatus(m.client)
		case "Search Documents":
			m.currentView = "search"
			m.searchList.SetItems(nil)
			m.queryInput.Placeholder = "Search term..."
			m.queryInput.SetValue("")
			m.queryInput.Focus()
			return m, fetchStats(m.client)
		case "Ingest Documents":
			m.currentView = "ingest"
			m.queryInput.Placeholder = "Comma-separated paths: reports/q3.txt, notes.md"
			m.queryInput.SetValue("")
			m.queryInput.Focus()
		case "Reset Conversations":
			m.loading = true
			return m, resetSystem(m.client)
		}
		return m, nil

	case "ask":
		query := strings.TrimSpace(m.queryInput.Value())
		if query == "" {
			m.error = "Please enter a question"
			return m, nil
		}
		m.error = ""
		m.answer = nil
		m.loading = true
		return m, submitQuery(m.client, query)

	case "search":
		query := strings.TrimSpace(m.queryInput.Value())
		if query == "" {
			m.error = "Please enter a search term"
			return m, nil
		}
		m.error = ""
		m.notice = ""
		m.loading = true
		m.queryInput.Blur()
		return m, searchDocuments(m.client, query)

	case "ingest":
		raw := strings.Split(m.queryInput.Value(), ",")
		paths := make([]string, 0, len(raw))
		for _, p := range raw {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				paths = append(paths, trimmed)
			}
		}
		if len(paths) == 0 {
			m.error = "Please enter at least one path"
			return m, nil
		}
		m.error = ""
		m.loading = true
		return m, ingestDocuments(m.client, paths)
	}

	return m, nil
}

// View renders the UI
func (m Model) View() string {
	switch m.currentView {
	case "main":
		view := m.mainMenu.View()
		if m.error != "" {
			view += "\n" + errorStyle.Render(m.error)
		}
		if m.notice != "" {
			view += "\n" + successStyle.Render(m.notice)
		}
		return docStyle.Render(view)
	case "ask":
		return docStyle.Render(m.askView())
	case "status":
		return docStyle.Render(m.statusViewRender())
	case "search":
		return docStyle.Render(m.searchViewRender())
	case "ingest":
		return docStyle.Render(m.ingestView())
	default:
		return "Loading..."
	}
}

func (m Model) askView() string {
	view := titleStyle.Render("Ask a Question") + "\n\n" + m.queryInput.View() + "\n"

	if m.loading {
		view += "\n" + m.spinner.View() + " waiting for the agents...\n"
	}
	if m.error != "" {
		view += "\n" + errorStyle.Render(m.error) + "\n"
	}
	if m.answer != nil {
		view += "\n" + answerView(m.answer)
	}

	view += "\nPress 'enter' to submit, 'esc' to go back\n"
	return view
}

func (m Model) statusViewRender() string {
	view := titleStyle.Render("System Status") + "\n\n"
	if m.loading {
		view += m.spinner.View() + " fetching...\n"
	}
	view += m.statusView.View() + "\n"
	if m.error != "" {
		view += errorStyle.Render(m.error) + "\n"
	}
	view += "\nPress 'r' to refresh, 'esc' to go back\n"
	return view
}

func (m Model) searchViewRender() string {
	view := titleStyle.Render("Search Documents") + "\n\n"
	if m.stats != nil {
		view += infoStyle.Render(fmt.Sprintf("%d documents, %d words",
			m.stats.DocumentCount, m.stats.TotalWords)) + "\n\n"
	}
	view += m.queryInput.View() + "\n\n" + m.searchList.View() + "\n"
	if m.loading {
		view += m.spinner.View() + " searching...\n"
	}
	if m.error != "" {
		view += errorStyle.Render(m.error) + "\n"
	}
	if m.notice != "" {
		view += successStyle.Render(m.notice) + "\n"
	}
	view += "\nPress 'enter' to search, 'esc' to go back\n"
	return view
}

func (m Model) ingestView() string {
	view := titleStyle.Render("Ingest Documents") + "\n\n" + m.queryInput.View() + "\n"
	if m.loading {
		view += "\n" + m.spinner.View() + " ingesting...\n"
	}
	if m.error != "" {
		view += "\n" + errorStyle.Render(m.error) + "\n"
	}
	if m.notice != "" {
		view += "\n" + successStyle.Render(m.notice) + "\n"
	}
	view += "\nPress 'enter' to ingest, 'esc' to go back\n"
	return view
}

// answerView formats one agent response.
func answerView(resp *QueryResponse) string {
	badge := infoStyle.Render("agent: " + resp.AgentName)
	if resp.IsError() {
		badge = errorStyle.Render("agent: " + resp.AgentName + " (failed)")
	}

	view := badge + "\n\n" + resp.Content + "\n"

	if len(resp.FunctionCalls) > 0 {
		view += "\nCalculations:\n"
		for _, call := range resp.FunctionCalls {
			result, err := json.Marshal(call.Result)
			if err != nil {
				result = []byte("?")
			}
			view += fmt.Sprintf("• %s → %s\n", call.Name, string(result))
		}
	}

	return view
}

// Custom message types for the tea.Model
type answerMsg struct {
	resp *QueryResponse
}

type statusMsg struct {
	status *SystemStatus
}

type searchMsg struct {
	hits []SearchHit
}

type statsMsg struct {
	stats *DocumentStats
}

type ingestMsg struct {
	result *IngestResult
}

type errorMsg struct {
	err string
}

type confirmMsg struct {
	message string
}

// searchItem represents one search hit in the result list
type searchItem struct {
	title, desc string
}

func (i searchItem) Title() string       { return i.title }
func (i searchItem) Description() string { return i.desc }
func (i searchItem) FilterValue() string { return i.title }

// submitQuery routes a question through the service
func submitQuery(client *ApiClient, query string) tea.Cmd {
	return func() tea.Msg {
		resp, err := client.SubmitQuery(query)
		if err != nil {
			return errorMsg{err: fmt.Sprintf("Error submitting query: %v", err)}
		}
		return answerMsg{resp: resp}
	}
}

// fetchStatus retrieves the system snapshot
func fetchStatus(client *ApiClient) tea.Cmd {
	return func() tea.Msg {
		status, err := client.GetStatus()
		if err != nil {
			return errorMsg{err: fmt.Sprintf("Error fetching status: %v", err)}
		}
		return statusMsg{status: status}
	}
}

// searchDocuments queries the document corpus
func searchDocuments(client *ApiClient, query string) tea.Cmd {
	return func() tea.Msg {
		hits, err := client.SearchDocuments(query)
		if err != nil {
			return errorMsg{err: fmt.Sprintf("Error searching documents: %v", err)}
		}
		return searchMsg{hits: hits}
	}
}

// fetchStats retrieves corpus totals
func fetchStats(client *ApiClient) tea.Cmd {
	return func() tea.Msg {
		stats, err := client.GetDocumentStats()
		if err != nil {
			return errorMsg{err: fmt.Sprintf("Error fetching document stats: %v", err)}
		}
		return statsMsg{stats: stats}
	}
}

// ingestDocuments loads paths into the service
func ingestDocuments(client *ApiClient, paths []string) tea.Cmd {
	return func() tea.Msg {
		result, err := client.IngestDocuments(paths)
		if err != nil {
			return errorMsg{err: fmt.Sprintf("Error ingesting documents: %v", err)}
		}
		return ingestMsg{result: result}
	}
}

// resetSystem clears conversations and the knowledge base
func resetSystem(client *ApiClient) tea.Cmd {
	return func() tea.Msg {
		if err := client.Reset(); err != nil {
			return errorMsg{err: fmt.Sprintf("Error resetting: %v", err)}
		}
		return confirmMsg{message: "Conversations and knowledge base reset"}
	}
}

// statusRows converts the snapshot into table rows, supervisor first.
func statusRows(status *SystemStatus) []table.Row {
	names := make([]string, 0, len(status.Agents))
	for name := range status.Agents {
		if name != "supervisor" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	if _, ok := status.Agents["supervisor"]; ok {
		names = append([]string{"supervisor"}, names...)
	}

	rows := make([]table.Row, 0, len(names))
	for _, name := range names {
		agent := status.Agents[name]
		rows = append(rows, table.Row{
			name,
			agent.State,
			fmt.Sprintf("%d", agent.QueriesProcessed),
			fmt.Sprintf("%d", agent.DocumentsProcessed),
			fmt.Sprintf("%d", agent.InsightsExtracted),
			fmt.Sprintf("%d", status.QueueDepths[name]),
		})
	}
	return rows
}

// convertHitsToItems converts search hits to list items
func convertHitsToItems(hits []SearchHit) []list.Item {
	items := make([]list.Item, len(hits))
	for i, hit := range hits {
		excerpt := hit.Excerpt
		if len(excerpt) > 80 {
			excerpt = excerpt[:80] + "..."
		}
		items[i] = searchItem{
			title: fmt.Sprintf("%s (%d matches)", hit.Name, hit.Matches),
			desc:  excerpt,
		}
	}
	return items
}

func main() {
	p := tea.NewProgram(initialModel())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Error running program: %v", err)
		os.Exit(1)
	}
}
