// Benchmark tool for testing TrustHub against labeled scam message data.
//
// Usage:
//   go run cmd/benchmark/main.go -csv /path/to/messages.csv -url http://localhost:8080
//
// The CSV needs a "text" column and a "label" column (1 = scam, 0 = clean),
// e.g. an export of the SMS Spam Collection or a marketplace report dump.
//
// This tool:
//   1. Reads labeled message data
//   2. Sends each message to TrustHub for analysis
//   3. Compares TrustHub's verdict (scam/clean) with the actual labels
//   4. Calculates precision, recall, F1-score, and confusion matrix
package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// LabeledMessage represents a row from the labeled dataset.
type LabeledMessage struct {
	Text   string
	IsScam bool
}

// AnalyzeRequest is the TrustHub API request format.
type AnalyzeRequest struct {
	Text      string  `json:"text"`
	Threshold float64 `json:"threshold,omitempty"`
}

// AnalyzeResponse is the TrustHub API response format.
type AnalyzeResponse struct {
	ScamProbability float64 `json:"scamProbability"`
	IsScam          bool    `json:"isScam"`
	RuleScore       float64 `json:"ruleScore"`
}

// Metrics tracks benchmark results.
type Metrics struct {
	TruePositives  int64 // Scam detected as scam
	FalsePositives int64 // Clean detected as scam
	TrueNegatives  int64 // Clean detected as clean
	FalseNegatives int64 // Scam detected as clean (missed scam!)

	TotalProcessed int64
	TotalScam      int64
	TotalClean     int64
	TotalErrors    int64

	ProcessingTimeMs int64
}

func main() {
	csvPath := flag.String("csv", "", "Path to labeled message CSV file")
	baseURL := flag.String("url", "http://localhost:8080", "TrustHub base URL")
	tenantID := flag.String("tenant", "benchmark-test", "Tenant ID for requests")
	limit := flag.Int("limit", 10000, "Maximum messages to process (0 = all)")
	workers := flag.Int("workers", 10, "Number of concurrent workers")
	threshold := flag.Float64("threshold", 0, "Override scam threshold (0 = server default)")
	scamOnly := flag.Bool("scam-only", false, "Only test scam messages")
	verbose := flag.Bool("verbose", false, "Print each message result")
	flag.Parse()

	if *csvPath == "" {
		fmt.Println("Usage: benchmark -csv /path/to/messages.csv [-url http://localhost:8080]")
		fmt.Println("\nFlags:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	fmt.Println("╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║         TRUSTHUB BENCHMARK - Scam Message Detection           ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")
	fmt.Printf("\nCSV File:     %s\n", *csvPath)
	fmt.Printf("TrustHub URL: %s\n", *baseURL)
	fmt.Printf("Tenant ID:    %s\n", *tenantID)
	fmt.Printf("Workers:      %d\n", *workers)
	fmt.Printf("Limit:        %d\n", *limit)
	fmt.Printf("Scam Only:    %v\n", *scamOnly)
	fmt.Println()

	// Check TrustHub is running
	if err := checkHealth(*baseURL); err != nil {
		fmt.Printf("ERROR: TrustHub not reachable at %s: %v\n", *baseURL, err)
		fmt.Println("\nMake sure TrustHub is running:")
		fmt.Println("  go run cmd/trusthub/main.go")
		os.Exit(1)
	}
	fmt.Println("✓ TrustHub is healthy")

	fmt.Printf("\nReading labeled messages from %s...\n", *csvPath)
	messages, err := readMessageCSV(*csvPath, *limit, *scamOnly)
	if err != nil {
		fmt.Printf("ERROR: Failed to read CSV: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ Loaded %d messages\n", len(messages))

	scamCount := 0
	for _, msg := range messages {
		if msg.IsScam {
			scamCount++
		}
	}
	fmt.Printf("  - Scam:  %d (%.2f%%)\n", scamCount, 100*float64(scamCount)/float64(len(messages)))
	fmt.Printf("  - Clean: %d (%.2f%%)\n", len(messages)-scamCount, 100*float64(len(messages)-scamCount)/float64(len(messages)))

	fmt.Printf("\nRunning benchmark with %d workers...\n", *workers)
	startTime := time.Now()
	metrics := runBenchmark(messages, *baseURL, *tenantID, *threshold, *workers, *verbose)
	duration := time.Since(startTime)

	printResults(metrics, duration)
}

func checkHealth(baseURL string) error {
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func readMessageCSV(path string, limit int, scamOnly bool) ([]LabeledMessage, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	colIndex := make(map[string]int)
	for i, col := range header {
		colIndex[strings.ToLower(strings.TrimSpace(col))] = i
	}

	textCol, ok := colIndex["text"]
	if !ok {
		return nil, fmt.Errorf("CSV missing 'text' column")
	}
	labelCol, ok := colIndex["label"]
	if !ok {
		return nil, fmt.Errorf("CSV missing 'label' column")
	}

	var messages []LabeledMessage

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue // Skip malformed rows
		}
		if len(record) <= textCol || len(record) <= labelCol {
			continue
		}

		label := strings.ToLower(strings.TrimSpace(record[labelCol]))
		isScam := label == "1" || label == "scam" || label == "spam"

		if scamOnly && !isScam {
			continue
		}

		text := strings.TrimSpace(record[textCol])
		if text == "" {
			continue
		}

		messages = append(messages, LabeledMessage{Text: text, IsScam: isScam})

		if limit > 0 && len(messages) >= limit {
			break
		}
	}

	return messages, nil
}

func runBenchmark(messages []LabeledMessage, baseURL, tenantID string, threshold float64, numWorkers int, verbose bool) *Metrics {
	metrics := &Metrics{}

	work := make(chan LabeledMessage, 100)
	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &http.Client{Timeout: 10 * time.Second}

			for msg := range work {
				start := time.Now()
				result, err := analyzeMessage(client, baseURL, tenantID, threshold, msg)
				elapsed := time.Since(start).Milliseconds()

				atomic.AddInt64(&metrics.ProcessingTimeMs, elapsed)
				atomic.AddInt64(&metrics.TotalProcessed, 1)

				if err != nil {
					atomic.AddInt64(&metrics.TotalErrors, 1)
					if verbose {
						fmt.Printf("ERROR: %v\n", err)
					}
					continue
				}

				if msg.IsScam {
					atomic.AddInt64(&metrics.TotalScam, 1)
				} else {
					atomic.AddInt64(&metrics.TotalClean, 1)
				}

				predicted := result.IsScam
				actual := msg.IsScam

				if predicted && actual {
					atomic.AddInt64(&metrics.TruePositives, 1)
				} else if predicted && !actual {
					atomic.AddInt64(&metrics.FalsePositives, 1)
				} else if !predicted && !actual {
					atomic.AddInt64(&metrics.TrueNegatives, 1)
				} else { // !predicted && actual
					atomic.AddInt64(&metrics.FalseNegatives, 1)
				}

				if verbose {
					status := "✓"
					if predicted != actual {
						status = "✗"
					}
					preview := msg.Text
					if len(preview) > 40 {
						preview = preview[:40]
					}
					fmt.Printf("%s %-40s | Scam: %-5v | TrustHub: %-5v (%.2f)\n",
						status,
						preview,
						actual,
						predicted,
						result.ScamProbability,
					)
				}
			}
		}()
	}

	for _, msg := range messages {
		work <- msg
	}
	close(work)

	wg.Wait()

	return metrics
}

func analyzeMessage(client *http.Client, baseURL, tenantID string, threshold float64, msg LabeledMessage) (*AnalyzeResponse, error) {
	req := AnalyzeRequest{
		Text:      msg.Text,
		Threshold: threshold,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequest(http.MethodPost, baseURL+"/messages/analyze", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Tenant-ID", tenantID)

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var result AnalyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	return &result, nil
}

func printResults(m *Metrics, duration time.Duration) {
	fmt.Println("\n╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                      BENCHMARK RESULTS                        ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")

	fmt.Printf("\n📊 DATASET STATISTICS\n")
	fmt.Printf("   Total Processed:  %d\n", m.TotalProcessed)
	fmt.Printf("   Total Scam:       %d\n", m.TotalScam)
	fmt.Printf("   Total Clean:      %d\n", m.TotalClean)
	fmt.Printf("   Errors:           %d\n", m.TotalErrors)

	fmt.Printf("\n📈 CONFUSION MATRIX\n")
	fmt.Println("                        Predicted")
	fmt.Println("                    SCAM        CLEAN")
	fmt.Println("              ┌──────────┬──────────┐")
	fmt.Printf("   Actual  S  │ %8d │ %8d │  (TP, FN)\n", m.TruePositives, m.FalseNegatives)
	fmt.Println("              ├──────────┼──────────┤")
	fmt.Printf("           C  │ %8d │ %8d │  (FP, TN)\n", m.FalsePositives, m.TrueNegatives)
	fmt.Println("              └──────────┴──────────┘")

	precision := float64(0)
	if m.TruePositives+m.FalsePositives > 0 {
		precision = float64(m.TruePositives) / float64(m.TruePositives+m.FalsePositives)
	}

	recall := float64(0)
	if m.TruePositives+m.FalseNegatives > 0 {
		recall = float64(m.TruePositives) / float64(m.TruePositives+m.FalseNegatives)
	}

	f1 := float64(0)
	if precision+recall > 0 {
		f1 = 2 * (precision * recall) / (precision + recall)
	}

	accuracy := float64(0)
	total := m.TruePositives + m.TrueNegatives + m.FalsePositives + m.FalseNegatives
	if total > 0 {
		accuracy = float64(m.TruePositives+m.TrueNegatives) / float64(total)
	}

	fmt.Printf("\n🎯 DETECTION METRICS\n")
	fmt.Printf("   Precision:  %.4f  (of scam verdicts, how many were actual scams)\n", precision)
	fmt.Printf("   Recall:     %.4f  (of scams, how many did we catch)\n", recall)
	fmt.Printf("   F1-Score:   %.4f  (harmonic mean of precision & recall)\n", f1)
	fmt.Printf("   Accuracy:   %.4f  (overall correct predictions)\n", accuracy)

	fmt.Printf("\n🔍 DETECTION ANALYSIS\n")
	if m.TotalScam > 0 {
		detectionRate := float64(m.TruePositives) / float64(m.TotalScam) * 100
		missRate := float64(m.FalseNegatives) / float64(m.TotalScam) * 100
		fmt.Printf("   Scams Detected:    %d / %d (%.2f%%)\n", m.TruePositives, m.TotalScam, detectionRate)
		fmt.Printf("   Scams Missed:      %d / %d (%.2f%%) ⚠️\n", m.FalseNegatives, m.TotalScam, missRate)
	}
	if m.TotalClean > 0 {
		falseAlarmRate := float64(m.FalsePositives) / float64(m.TotalClean) * 100
		fmt.Printf("   False Alarms:      %d / %d (%.2f%%)\n", m.FalsePositives, m.TotalClean, falseAlarmRate)
	}

	fmt.Printf("\n⏱️  PERFORMANCE\n")
	fmt.Printf("   Total Duration:   %v\n", duration.Round(time.Millisecond))
	if m.TotalProcessed > 0 {
		avgMs := float64(m.ProcessingTimeMs) / float64(m.TotalProcessed)
		tps := float64(m.TotalProcessed) / duration.Seconds()
		fmt.Printf("   Avg Latency:      %.2f ms\n", avgMs)
		fmt.Printf("   Throughput:       %.2f msg/sec\n", tps)
	}

	fmt.Printf("\n💡 INTERPRETATION\n")
	if recall >= 0.9 {
		fmt.Println("   ✅ Excellent recall - catching most scams")
	} else if recall >= 0.7 {
		fmt.Println("   ⚠️  Good recall - but missing some scams")
	} else if recall >= 0.5 {
		fmt.Println("   ⚠️  Moderate recall - significant scams being missed")
	} else {
		fmt.Println("   ❌ Poor recall - most scams are being missed!")
	}

	if precision >= 0.5 {
		fmt.Println("   ✅ Good precision - scam verdicts are meaningful")
	} else if precision >= 0.2 {
		fmt.Println("   ⚠️  Low precision - many false alarms")
	} else {
		fmt.Println("   ❌ Very low precision - mostly false alarms")
	}

	fmt.Println()
}
