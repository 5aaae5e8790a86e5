// Command trackerctl is a terminal client for a running backend. It drives
// the same debounced search and batch selection flow the web UI uses: type
// to search, pick results by number, and add the selection to a list in one
// call.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"reeltrack/models"
	"reeltrack/services/batch"
)

type client struct {
	baseURL string
	token   string
	httpc   *http.Client
}

func (c *client) do(method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s: %s", resp.Status, apiErr.Error)
		}
		return fmt.Errorf("%s", resp.Status)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *client) search(ctx context.Context, query string) ([]models.SearchResult, error) {
	var resp struct {
		Results []models.SearchResult `json:"results"`
	}
	path := "/search-media?query=" + strings.ReplaceAll(query, " ", "+")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	httpResp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search failed: %s", httpResp.Status)
	}
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

func (c *client) login(email, password string) error {
	var resp struct {
		Token string `json:"token"`
	}
	err := c.do(http.MethodPost, "/api/auth/login",
		map[string]string{"email": email, "password": password}, &resp)
	if err != nil {
		return err
	}
	c.token = resp.Token
	return nil
}

// remoteAdder submits one stub through the single-item add endpoint so the
// server applies the same enrichment path as the UI.
type remoteAdder struct {
	client     *client
	collection models.Collection
}

func (a *remoteAdder) AddFromSearch(_ context.Context, _ string, _ models.Collection, stub models.SearchResult) (models.MediaRecord, error) {
	body := map[string]any{
		"id":        stub.TMDBID,
		"title":     stub.Title,
		"mediaType": string(stub.Kind),
		"year":      stub.Year,
		"overview":  stub.Overview,
	}
	if stub.PosterURL != nil {
		body["posterPath"] = *stub.PosterURL
	}

	var rec models.MediaRecord
	if err := a.client.do(http.MethodPost, "/api/lists/"+string(a.collection), body, &rec); err != nil {
		return models.MediaRecord{}, err
	}
	return rec, nil
}

func printResults(results []models.SearchResult, selected []models.SearchResult) {
	picked := make(map[int64]bool, len(selected))
	for _, s := range selected {
		picked[s.TMDBID] = true
	}
	for i, r := range results {
		mark := " "
		if picked[r.TMDBID] {
			mark = "*"
		}
		year := "----"
		if r.Year != nil {
			year = strconv.Itoa(*r.Year)
		}
		fmt.Printf(" [%s] %2d. %-40s %s  %s\n", mark, i+1, r.Title, year, r.Kind)
	}
}

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:7880", "Backend base URL")
		email      = flag.String("email", "", "Account email")
		password   = flag.String("password", "", "Account password")
		collection = flag.String("list", "watchlist", "Target list: watchlist or watched")
	)
	flag.Parse()

	target := models.Collection(*collection)
	if !target.Valid() {
		log.Fatalf("unknown list %q", *collection)
	}
	if *email == "" || *password == "" {
		log.Fatal("email and password are required")
	}

	c := &client{baseURL: strings.TrimRight(*baseURL, "/"), httpc: &http.Client{Timeout: 15 * time.Second}}
	if err := c.login(*email, *password); err != nil {
		log.Fatalf("login: %v", err)
	}

	session := batch.NewSession()
	resultsCh := make(chan []models.SearchResult, 1)

	var current []models.SearchResult
	debouncer := batch.NewDebouncer(batch.DefaultDebounceDelay, c.search,
		func(query string, results []models.SearchResult, err error) {
			if err != nil {
				log.Printf("search %q: %v", query, err)
				return
			}
			resultsCh <- results
		})

	fmt.Printf("Connected to %s, adding to %s.\n", c.baseURL, target)
	fmt.Println("Commands: /<query> search, <n> toggle selection, add, clear, quit")

	scanner := bufio.NewScanner(os.Stdin)
	ctx := context.Background()
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "quit" || line == "exit":
			return

		case line == "clear":
			session.Clear()
			printResults(current, nil)

		case line == "add":
			report, err := session.AddSelected(ctx, &remoteAdder{client: c, collection: target}, "remote", target)
			if err != nil {
				log.Printf("add: %v", err)
				continue
			}
			fmt.Printf("added %d, duplicates %d, failed %d (of %d)\n",
				report.Added, report.Duplicates, report.Failed, report.Attempted)

		case strings.HasPrefix(line, "/"):
			query := strings.TrimSpace(strings.TrimPrefix(line, "/"))
			// Feed the query through the debouncer the way a UI would per
			// keystroke; only the final state triggers a request.
			for i := 1; i <= len(query); i++ {
				debouncer.Update(ctx, query[:i])
			}
			if query == "" {
				debouncer.Update(ctx, "")
			}
			select {
			case current = <-resultsCh:
				session.SetResults(current)
				printResults(current, nil)
			case <-time.After(10 * time.Second):
				log.Printf("search timed out")
			}

		default:
			n, err := strconv.Atoi(line)
			if err != nil || n < 1 || n > len(current) {
				fmt.Println("unknown command")
				continue
			}
			if _, err := session.Toggle(current[n-1].TMDBID); err != nil {
				log.Printf("select: %v", err)
				continue
			}
			printResults(current, session.Selected())
		}
	}
}
