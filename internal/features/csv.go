package features

import (
	"fmt"
	"strconv"
	"strings"

	"fundflow-lab/internal/domain"
)

// FrequencyField returns the CSV column name of a case.
func FrequencyField(id int) string {
	return fmt.Sprintf("fund_flow_case_%d_frequency", id)
}

// RenderSequencesCSV renders sequences as "address,value" rows with the case
// ids of value separated by spaces.
func RenderSequencesCSV(seqs []*domain.FundFlowSequence) string {
	var sb strings.Builder

	sb.WriteString("address,value\n")

	for _, s := range seqs {
		ids := make([]string, len(s.Cases))
		for i, id := range s.Cases {
			ids[i] = strconv.Itoa(int(id))
		}
		sb.WriteString(fmt.Sprintf("%s,%s\n", s.ContractAddress, strings.Join(ids, " ")))
	}

	return sb.String()
}

// RenderFrequencyCSV renders one dense row per contract with a column for
// every case id 1..n.
func RenderFrequencyCSV(rows []ContractFeatures, n int) string {
	var sb strings.Builder

	// Header
	sb.WriteString("contract_address")
	for id := 1; id <= n; id++ {
		sb.WriteString(",")
		sb.WriteString(FrequencyField(id))
	}
	sb.WriteString("\n")

	// Rows
	for _, r := range rows {
		sb.WriteString(r.Address.String())
		for id := 1; id <= n; id++ {
			sb.WriteString(fmt.Sprintf(",%.6f", r.Frequencies.Frequency(id)))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
