package services

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"aktis-collector-monday/internal/models"
)

const (
	unknownCategory   = "Sin dato"
	unknownTechnician = "Sin asignar"
	unknownStatus     = "Sin_estado"
	emptyLabel        = "Sin_dato"
)

// TicketMetrics aggregates normalized records into open-ticket gauges
type TicketMetrics struct {
	closedStates map[string]struct{}
}

// NewTicketMetrics builds a renderer treating the given statuses as closed.
// Statuses compare trimmed and case-insensitively.
func NewTicketMetrics(closedStates []string) *TicketMetrics {
	closed := make(map[string]struct{}, len(closedStates))
	for _, state := range closedStates {
		if key := strings.ToLower(strings.TrimSpace(state)); key != "" {
			closed[key] = struct{}{}
		}
	}
	return &TicketMetrics{closedStates: closed}
}

// IsClosed reports whether status is one of the closed states
func (tm *TicketMetrics) IsClosed(status string) bool {
	_, ok := tm.closedStates[strings.ToLower(strings.TrimSpace(status))]
	return ok
}

// Render writes the Prometheus text exposition for records, stamped with
// the scrape time
func (tm *TicketMetrics) Render(records []models.NormalizedRecord, scraped time.Time) string {
	open := 0
	byCategory := map[string]int{}
	byTechnician := map[string]int{}
	info := make([]string, 0, len(records))

	for _, record := range records {
		status := record.Status
		if status == "" {
			status = unknownStatus
		}
		info = append(info, fmt.Sprintf(
			`monday_ticket_info{ticket_id="%s",category="%s",technician="%s",status="%s"} 1`,
			labelValue(record.TicketNumber),
			labelValue(record.Category),
			labelValue(record.Assignee),
			labelValue(status),
		))

		if tm.IsClosed(record.Status) {
			continue
		}
		open++
		byCategory[orDefault(record.Category, unknownCategory)]++
		byTechnician[orDefault(record.Assignee, unknownTechnician)]++
	}

	var b strings.Builder
	b.WriteString("# HELP monday_tickets_created_total Total tickets created on the board\n")
	b.WriteString("# TYPE monday_tickets_created_total counter\n")
	fmt.Fprintf(&b, "monday_tickets_created_total %d\n", len(records))

	b.WriteString("# HELP monday_tickets_open Tickets currently open\n")
	b.WriteString("# TYPE monday_tickets_open gauge\n")
	fmt.Fprintf(&b, "monday_tickets_open %d\n", open)

	b.WriteString("# HELP monday_tickets_by_category Open tickets by category\n")
	b.WriteString("# TYPE monday_tickets_by_category gauge\n")
	for _, category := range sortedCounts(byCategory) {
		fmt.Fprintf(&b, "monday_tickets_by_category{category=\"%s\"} %d\n", labelValue(category), byCategory[category])
	}

	b.WriteString("# HELP monday_tickets_by_technician Open tickets by assigned technician\n")
	b.WriteString("# TYPE monday_tickets_by_technician gauge\n")
	for _, technician := range sortedCounts(byTechnician) {
		fmt.Fprintf(&b, "monday_tickets_by_technician{technician=\"%s\"} %d\n", labelValue(technician), byTechnician[technician])
	}

	b.WriteString("# HELP monday_ticket_info Ticket labels as a constant series\n")
	b.WriteString("# TYPE monday_ticket_info gauge\n")
	for _, line := range info {
		b.WriteString(line)
		b.WriteByte('\n')
	}

	fmt.Fprintf(&b, "# Scrape ts %d\n", scraped.Unix())
	return b.String()
}

// labelValue turns free text into a label value: empty becomes Sin_dato,
// spaces and slashes become underscores, quotes and backslashes are escaped
func labelValue(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return emptyLabel
	}
	replacer := strings.NewReplacer(
		" ", "_",
		"/", "_",
		`\`, `\\`,
		`"`, `\"`,
		"\n", `\n`,
	)
	return replacer.Replace(value)
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func sortedCounts(counts map[string]int) []string {
	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
