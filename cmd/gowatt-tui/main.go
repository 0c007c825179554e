package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wattmart/gowatt/internal/domain"
	"github.com/wattmart/gowatt/internal/feed"
	"github.com/wattmart/gowatt/internal/journal"
	"github.com/wattmart/gowatt/internal/marketplace"
	"github.com/wattmart/gowatt/internal/trade"
	"github.com/wattmart/gowatt/internal/wallet"
	"github.com/wattmart/gowatt/pkg/config"
	"github.com/wattmart/gowatt/pkg/kvstore"
	"github.com/wattmart/gowatt/pkg/logger"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("28")).
			Padding(0, 1)

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("238"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("2"))

	errStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("1"))
)

type listingsMsg struct {
	listings []domain.Listing
	warning  string
}

type purchaseMsg struct {
	tx  *domain.Transaction
	err error
}

type model struct {
	repo  *marketplace.Repository
	orch  *trade.Orchestrator
	orchE error // why purchasing is disabled, if it is

	listings []domain.Listing
	view     []domain.Listing
	cursor   int

	query     string
	searching bool
	sortMode  marketplace.SortMode

	status  string
	loading bool
	buying  bool
}

func (m *model) fetchListings() tea.Cmd {
	repo := m.repo
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		listings, err := repo.Listings(ctx)
		msg := listingsMsg{listings: listings}
		if err != nil {
			msg.warning = "Unable to load energy listings"
		}
		return msg
	}
}

func (m *model) buy(listing domain.Listing) tea.Cmd {
	orch := m.orch
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		tx, err := orch.Buy(ctx, &listing)
		return purchaseMsg{tx: tx, err: err}
	}
}

func (m *model) Init() tea.Cmd {
	m.loading = true
	return m.fetchListings()
}

func (m *model) refilter() {
	m.view = marketplace.Filter(m.listings, m.query, m.sortMode)
	if m.cursor >= len(m.view) {
		m.cursor = len(m.view) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case listingsMsg:
		m.loading = false
		m.listings = msg.listings
		m.status = msg.warning
		m.refilter()
		return m, nil

	case purchaseMsg:
		m.buying = false
		if msg.err != nil {
			m.status = errStyle.Render("Purchase failed: " + msg.err.Error())
			return m, nil
		}
		m.status = okStyle.Render(fmt.Sprintf("Purchase confirmed: %s (hash %s)", msg.tx.ID, msg.tx.Hash))
		// External trade state changed; re-run the full fetch.
		m.loading = true
		return m, m.fetchListings()

	case tea.KeyMsg:
		if m.searching {
			return m.updateSearch(msg)
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.view)-1 {
				m.cursor++
			}
		case "/":
			m.searching = true
		case "s":
			switch m.sortMode {
			case marketplace.SortNone:
				m.sortMode = marketplace.SortPriceLow
			case marketplace.SortPriceLow:
				m.sortMode = marketplace.SortPriceHigh
			default:
				m.sortMode = marketplace.SortNone
			}
			m.refilter()
		case "r":
			m.repo.Refresh()
			m.loading = true
			return m, m.fetchListings()
		case "enter", "b":
			return m.startPurchase()
		}
	}
	return m, nil
}

func (m *model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searching = false
	case "esc":
		m.searching = false
		m.query = ""
	case "backspace":
		if len(m.query) > 0 {
			m.query = m.query[:len(m.query)-1]
		}
	default:
		if msg.Type == tea.KeyRunes {
			m.query += string(msg.Runes)
		}
	}
	m.refilter()
	return m, nil
}

func (m *model) startPurchase() (tea.Model, tea.Cmd) {
	if m.buying || m.cursor >= len(m.view) {
		return m, nil
	}
	if m.orch == nil {
		m.status = errStyle.Render("Purchasing disabled: " + m.orchE.Error())
		return m, nil
	}
	listing := m.view[m.cursor]
	m.buying = true
	m.status = fmt.Sprintf("Buying %s (%s)…", listing.Location, listing.ID)
	return m, m.buy(listing)
}

func (m *model) View() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("gowatt — energy marketplace"))
	b.WriteString("\n\n")

	if m.searching {
		b.WriteString("search: " + m.query + "▌\n")
	} else if m.query != "" {
		b.WriteString(dimStyle.Render("search: "+m.query) + "\n")
	}
	b.WriteString(dimStyle.Render(fmt.Sprintf("sort: %s", m.sortMode)) + "\n\n")

	if m.loading {
		b.WriteString("loading listings…\n")
	}

	b.WriteString(fmt.Sprintf("  %-22s %-8s %-12s %-10s %-10s\n",
		"LOCATION", "PERIOD", "QTY (MWH)", "$/kWH", "SOURCE"))
	for i, l := range m.view {
		line := fmt.Sprintf("  %-22s %-8s %-12s %-10s %-10s",
			l.Location, l.Period, l.Quantity.String(), l.DisplayPrice(), l.Source)
		if i == m.cursor {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}
	if len(m.view) == 0 && !m.loading {
		b.WriteString(dimStyle.Render("  no listings match\n"))
	}

	if m.status != "" {
		b.WriteString("\n" + m.status + "\n")
	}
	b.WriteString("\n" + dimStyle.Render("↑/↓ move · / search · s sort · b buy · r refresh · q quit") + "\n")
	return b.String()
}

func main() {
	configPath := flag.String("config", "gowatt.yaml", "config file path")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}

	// The TUI owns the terminal; keep logs out of it.
	logFile := cfg.Log.File
	if logFile == "" {
		logFile = "logs/gowatt-tui.log"
	}
	_ = logger.Init(logger.Config{Level: cfg.Log.Level, OutputFile: logFile, MaxSize: 10, MaxBackups: 2, MaxAge: 7, NoConsole: true})

	kv, err := kvstore.Open(kvstore.OpenOptions{Path: cfg.DataDir + "/listings"})
	if err != nil {
		fmt.Fprintln(os.Stderr, "open listing store:", err)
		os.Exit(1)
	}
	defer kv.Close()

	store := marketplace.NewKVListingStore(kv)
	repo := marketplace.NewRepository(store, feed.NewClient(cfg.Feed))

	m := &model{repo: repo, sortMode: marketplace.SortNone}

	// A missing wallet only disables purchasing; browsing still works.
	if provider, werr := wallet.NewKeyWallet(cfg.Chain); werr != nil {
		m.orchE = werr
	} else if contract, cerr := trade.NewContract(cfg.Chain.ContractAddress, provider); cerr != nil {
		m.orchE = cerr
	} else if jnl, jerr := journal.Open(cfg.JournalPath); jerr != nil {
		m.orchE = jerr
	} else {
		defer jnl.Close()
		m.orch = trade.NewOrchestrator(provider, contract, jnl, cfg.Chain.FallbackGas)
	}

	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintln(os.Stderr, "tui error:", err)
		os.Exit(1)
	}
}
