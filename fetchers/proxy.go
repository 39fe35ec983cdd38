package fetchers

import (
	"bufio"
	"os"
	"strings"
	"sync/atomic"

	"github.com/playwright-community/playwright-go"
)

var currentProxyIndex int32

func toPWProxy(u string) *playwright.Proxy {
	if len(u) == 0 {
		return nil
	}

	return &playwright.Proxy{
		Server: u,
	}
}

// roundRobinProxy returns the next proxy URL in rotation, or "" when none
// are configured.
func roundRobinProxy(urls []string) string {
	if len(urls) == 0 {
		return ""
	}

	index := atomic.AddInt32(&currentProxyIndex, 1)
	index %= int32(len(urls))

	return urls[index]
}

// ProxiesFromFile reads one proxy URL per line, skipping blanks.
func ProxiesFromFile(path string) []string {
	file, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer file.Close()

	var proxies []string

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		proxy := strings.TrimSpace(scanner.Text())
		if proxy != "" {
			proxies = append(proxies, proxy)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil
	}

	return proxies
}
