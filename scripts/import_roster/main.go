// Command import_roster uploads a roster sheet to a running API instance and
// prints the reconciliation manifest. Useful for smoke-testing an environment
// and for one-off imports from the command line.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

type rowResult struct {
	RowNumber int    `json:"row_number"`
	Handle    string `json:"handle"`
	StaffID   string `json:"staff_id"`
	Outcome   string `json:"outcome"`
}

type rowFailure struct {
	RowNumber int    `json:"row_number"`
	Handle    string `json:"handle"`
	Code      string `json:"code"`
	Reason    string `json:"reason"`
}

type manifest struct {
	SchoolID       int64        `json:"school_id"`
	Created        int          `json:"created"`
	Updated        int          `json:"updated"`
	Rows           []rowResult  `json:"rows"`
	Failures       []rowFailure `json:"failures"`
	SplitterTokens int          `json:"splitter_tokens"`
}

type envelope struct {
	Data  *manifest `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func main() {
	addr := flag.String("addr", "http://localhost:8080", "API base address")
	token := flag.String("token", "", "admin bearer token")
	file := flag.String("file", "", "roster sheet (.xlsx) to upload")
	timeout := flag.Duration("timeout", 2*time.Minute, "request timeout")
	flag.Parse()

	if *file == "" || *token == "" {
		flag.Usage()
		os.Exit(2)
	}

	content, err := os.ReadFile(*file)
	if err != nil {
		log.Fatalf("read sheet: %v", err)
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filepath.Base(*file))
	if err != nil {
		log.Fatalf("build upload: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		log.Fatalf("build upload: %v", err)
	}
	if err := writer.Close(); err != nil {
		log.Fatalf("build upload: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, *addr+"/api/v1/staff/import", body)
	if err != nil {
		log.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+*token)

	client := &http.Client{Timeout: *timeout}
	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("upload failed: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatalf("read response: %v", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Fatalf("decode response (%d): %v\n%s", resp.StatusCode, err, raw)
	}
	if env.Error != nil {
		log.Fatalf("import rejected (%d): %s %s", resp.StatusCode, env.Error.Code, env.Error.Message)
	}
	if env.Data == nil {
		log.Fatalf("unexpected response (%d): %s", resp.StatusCode, raw)
	}

	m := env.Data
	fmt.Printf("school %d: created %d, matched %d, splitter tokens %d\n", m.SchoolID, m.Created, m.Updated, m.SplitterTokens)
	for _, f := range m.Failures {
		fmt.Printf("  row %d (%s) failed: %s %s\n", f.RowNumber, f.Handle, f.Code, f.Reason)
	}
}
