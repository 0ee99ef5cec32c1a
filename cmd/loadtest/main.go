package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"storefront/internal/model"
	"storefront/pkg/tokens"
)

// Result is the outcome of one request.
type Result struct {
	Status int
	Body   string
	Err    error
}

func main() {
	baseURL := flag.String("base", "http://localhost:8080", "server base url")
	secret := flag.String("secret", "", "JWT_SECRET of the server under test")
	productID := flag.Int("product", 1, "product id")
	stockCheck := flag.Bool("stock", true, "read product stock after the test")

	// oversell: many users each ordering one unit concurrently
	nUsers := flag.Int("users", 200, "distinct users")
	concurrency := flag.Int("c", 50, "max concurrency")
	burst := flag.Int("burst", 50, "requests from a single user for the rate limit test")
	flag.Parse()

	if *secret == "" {
		panic("-secret is required")
	}
	client := &http.Client{Timeout: 5 * time.Second}

	fmt.Printf("start oversell test: product=%d users=%d concurrency=%d\n", *productID, *nUsers, *concurrency)
	results := runOrders(client, *baseURL, []byte(*secret), *productID, *nUsers, *concurrency, func(i int) uint { return uint(i + 1) })
	printSummary("oversell", results)

	if *stockCheck {
		stock, err := getStock(client, *baseURL, []byte(*secret), *productID)
		if err != nil {
			fmt.Println("stock check err:", err)
		} else {
			fmt.Println("final stock:", stock)
		}
	}

	fmt.Printf("\nstart rate limit test: same user (10001), %d requests\n", *burst)
	results2 := runOrders(client, *baseURL, []byte(*secret), *productID, *burst, *burst, func(int) uint { return 10001 })
	printSummary("rate_limit", results2)
}

func runOrders(client *http.Client, baseURL string, secret []byte, productID, total, concurrency int, userFor func(int) uint) []Result {
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	results := make([]Result, total)

	for i := 0; i < total; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()

			uid := userFor(idx)
			tok, err := tokens.Issue(secret, uid, fmt.Sprintf("load-%d", uid), fmt.Sprintf("load-%d@example.com", uid), model.RoleCustomer, time.Hour)
			if err != nil {
				results[idx] = Result{Err: err}
				return
			}
			results[idx] = orderOnce(client, baseURL, tok, productID)
		}(i)
	}

	wg.Wait()
	return results
}

func orderOnce(client *http.Client, baseURL, token string, productID int) Result {
	b, _ := json.Marshal(map[string]any{"productId": productID, "quantity": 1})
	req, _ := http.NewRequest(http.MethodPost, baseURL+"/orders", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return Result{Err: err}
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return Result{Status: resp.StatusCode, Body: string(body)}
}

func printSummary(name string, results []Result) {
	count := map[int]int{}
	errCount := 0
	for _, r := range results {
		if r.Err != nil {
			errCount++
			continue
		}
		count[r.Status]++
	}
	codes := make([]int, 0, len(count))
	for code := range count {
		codes = append(codes, code)
	}
	sort.Ints(codes)

	fmt.Printf("[%s] http status summary:\n", name)
	for _, code := range codes {
		fmt.Printf("  %d -> %d\n", code, count[code])
	}
	if errCount > 0 {
		fmt.Printf("  errors -> %d\n", errCount)
	}
}

// getStock reads the product as an admin so oversell shows up as negative or unexpected stock.
func getStock(client *http.Client, baseURL string, secret []byte, productID int) (int64, error) {
	tok, err := tokens.Issue(secret, 1, "loadtest-admin", "admin@example.com", model.RoleAdmin, time.Minute)
	if err != nil {
		return 0, err
	}
	req, _ := http.NewRequest(http.MethodGet, fmt.Sprintf("%s/products/%d", baseURL, productID), nil)
	req.Header.Set("Authorization", "Bearer "+tok)

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return 0, fmt.Errorf("status=%d body=%s", resp.StatusCode, string(b))
	}

	var out struct {
		Stock int64 `json:"stock"`
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return 0, err
	}
	return out.Stock, nil
}
