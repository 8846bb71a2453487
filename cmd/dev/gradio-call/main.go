// Command gradio-call invokes one endpoint of the Gradio app and prints the
// raw result. Useful to check an endpoint's argument order.
//
//	go run ./cmd/dev/gradio-call -endpoint review_cv -data '["{\"skills\":[\"Go\"]}", 0.7, 1024]'
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/garnizeh/careerhub/internal/gradio"
)

func main() {
	_ = godotenv.Load()

	base := flag.String("url", os.Getenv("GRADIO_URL"), "Gradio base URL")
	endpoint := flag.String("endpoint", "", "Endpoint name, e.g. review_cv")
	data := flag.String("data", "[]", "JSON array of positional arguments")
	timeout := flag.Duration("timeout", 5*time.Minute, "Call timeout")
	flag.Parse()

	if *endpoint == "" {
		log.Fatal("-endpoint is required")
	}
	var args []any
	if err := json.Unmarshal([]byte(*data), &args); err != nil {
		log.Fatalf("invalid -data: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client := gradio.New(*base, *timeout, nil)
	if err := client.Health(ctx); err != nil {
		log.Fatalf("gradio not reachable: %v", err)
	}
	out, err := client.Call(ctx, *endpoint, args)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(string(out))
}
