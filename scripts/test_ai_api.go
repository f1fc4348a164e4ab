package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"

	"github.com/fatih/color"
)

const (
	baseURL = "http://localhost:3000/api"
)

// Token for a logged-in user. Override with API_TEST_TOKEN.
var userToken = os.Getenv("API_TEST_TOKEN")

// Pretty print JSON helper
func prettyPrint(v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("%v\n", v)
		return
	}
	fmt.Println(string(b))
}

// Request helper
func sendRequest(method, url, token string, body interface{}) (*http.Response, []byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, baseURL+url, bodyReader)
	if err != nil {
		return nil, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	return resp, respBody, err
}

// Multipart helper for the chat and diagnose endpoints
func sendMultipart(url, token string, fields map[string]string, imagePath string) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		w.WriteField(k, v)
	}
	if imagePath != "" {
		f, err := os.Open(imagePath)
		if err != nil {
			return nil, nil, err
		}
		defer f.Close()
		part, err := w.CreateFormFile("image", "plant.jpg")
		if err != nil {
			return nil, nil, err
		}
		if _, err := io.Copy(part, f); err != nil {
			return nil, nil, err
		}
	}
	w.Close()

	req, err := http.NewRequest("POST", baseURL+url, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	return resp, respBody, err
}

func main() {
	color.Cyan("🚀 Starting Plant Assistant API Test\n")

	if userToken == "" {
		color.Red("API_TEST_TOKEN is not set")
		os.Exit(1)
	}

	// 1. Create Chat Session
	color.Yellow("\n[USER] 1. Create Chat Session")
	resp, body, err := sendRequest("POST", "/assistant/v1/session", userToken, nil)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	var createResp map[string]interface{}
	json.Unmarshal(body, &createResp)
	prettyPrint(createResp)

	var sessionID string
	if data, ok := createResp["data"].(map[string]interface{}); ok {
		if id, ok := data["id"].(string); ok {
			sessionID = id
		}
	}
	if sessionID == "" {
		color.Red("No session id returned, aborting")
		os.Exit(1)
	}

	// 2. Send Text Chat
	color.Yellow("\n[USER] 2. Send Text Chat")
	resp, body, err = sendMultipart("/assistant/v1/chat", userToken, map[string]string{
		"chat_session_id": sessionID,
		"chat":            "How often should I water a basil plant?",
	}, "")
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	var chatResp map[string]interface{}
	json.Unmarshal(body, &chatResp)
	prettyPrint(chatResp)

	// 3. Send Chat with Image (triggers the image diagnosis tool)
	imagePath := os.Getenv("API_TEST_IMAGE")
	if imagePath != "" {
		color.Yellow("\n[USER] 3. Send Chat with Image")
		resp, body, err = sendMultipart("/assistant/v1/chat", userToken, map[string]string{
			"chat_session_id": sessionID,
			"chat":            "What is wrong with this plant?",
		}, imagePath)
		if err != nil {
			color.Red("Failed: %v", err)
			os.Exit(1)
		}
		color.Green("Status: %s", resp.Status)
		json.Unmarshal(body, &chatResp)
		prettyPrint(chatResp)

		// 4. Standalone Diagnose
		color.Yellow("\n[USER] 4. Standalone Diagnose")
		resp, body, err = sendMultipart("/diagnose/v1", userToken, map[string]string{
			"notes": "Leaves are drooping",
		}, imagePath)
		if err != nil {
			color.Red("Failed: %v", err)
			os.Exit(1)
		}
		color.Green("Status: %s", resp.Status)
		var diagResp map[string]interface{}
		json.Unmarshal(body, &diagResp)
		prettyPrint(diagResp)
	} else {
		color.Yellow("\n[SKIP] API_TEST_IMAGE not set, skipping image tests")
	}

	// 5. Chat History
	color.Yellow("\n[USER] 5. Get Chat History")
	resp, body, err = sendRequest("GET", "/assistant/v1/session/"+sessionID+"/history", userToken, nil)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	var historyResp map[string]interface{}
	json.Unmarshal(body, &historyResp)
	prettyPrint(historyResp)

	// 6. Podcast Context (summaries land asynchronously, may be empty at first)
	color.Yellow("\n[USER] 6. Get Podcast Context")
	resp, body, err = sendRequest("GET", "/podcast/v1/context?topic=basil", userToken, nil)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	var podcastResp map[string]interface{}
	json.Unmarshal(body, &podcastResp)
	prettyPrint(podcastResp)

	// 7. Delete Session
	color.Yellow("\n[USER] 7. Delete Session")
	resp, body, err = sendRequest("DELETE", "/assistant/v1/session/"+sessionID, userToken, nil)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	var deleteResp map[string]interface{}
	json.Unmarshal(body, &deleteResp)
	prettyPrint(deleteResp)

	color.Cyan("\n✅ Done")
}
