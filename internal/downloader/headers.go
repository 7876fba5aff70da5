package downloader

import "net/http"

// headerSets returns the realistic browser header variants rotated by the
// strategy chain. The Referer matters: the origin rejects hotlinked requests
// that do not look like they came from the platform's own pages.
func (d *Downloader) headerSets() []http.Header {
	referer := d.site.Referer

	chrome := http.Header{}
	chrome.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	chrome.Set("Accept", "image/avif,image/webp,image/apng,image/svg+xml,image/*,*/*;q=0.8")
	chrome.Set("Accept-Language", "zh-TW,zh;q=0.9,en;q=0.8")
	chrome.Set("Referer", referer)
	chrome.Set("Sec-Ch-Ua", `"Not_A Brand";v="8", "Chromium";v="120", "Google Chrome";v="120"`)
	chrome.Set("Sec-Ch-Ua-Mobile", "?0")
	chrome.Set("Sec-Ch-Ua-Platform", `"macOS"`)
	chrome.Set("Sec-Fetch-Dest", "image")
	chrome.Set("Sec-Fetch-Mode", "no-cors")
	chrome.Set("Sec-Fetch-Site", "same-site")

	safari := http.Header{}
	safari.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15")
	safari.Set("Accept", "image/png,image/svg+xml,image/*;q=0.8,video/*;q=0.8,*/*;q=0.5")
	safari.Set("Accept-Language", "zh-tw")
	safari.Set("Referer", referer)
	safari.Set("Connection", "keep-alive")

	firefox := http.Header{}
	firefox.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:120.0) Gecko/20100101 Firefox/120.0")
	firefox.Set("Accept", "image/avif,image/webp,*/*")
	firefox.Set("Accept-Language", "zh-TW,zh;q=0.8,en-US;q=0.5,en;q=0.3")
	firefox.Set("Referer", referer)
	firefox.Set("DNT", "1")
	firefox.Set("Connection", "keep-alive")
	firefox.Set("Sec-Fetch-Dest", "image")
	firefox.Set("Sec-Fetch-Mode", "no-cors")
	firefox.Set("Sec-Fetch-Site", "same-site")

	return []http.Header{chrome, safari, firefox}
}

// imageHeaders is the default image-request header set used by the reduced
// best-known-URL path.
func (d *Downloader) imageHeaders() http.Header {
	return d.headerSets()[0]
}

// pageHeaders emulate a full page navigation rather than an image subrequest.
// Some anti-hotlinking setups accept these when the image headers fail.
func (d *Downloader) pageHeaders() http.Header {
	h := http.Header{}
	h.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8")
	h.Set("Accept-Language", "zh-TW,zh;q=0.9,en;q=0.8")
	h.Set("Cache-Control", "no-cache")
	h.Set("Pragma", "no-cache")
	h.Set("Upgrade-Insecure-Requests", "1")

	return h
}

// minimalHeaders is the non-browser last-resort set.
func minimalHeaders() http.Header {
	h := http.Header{}
	h.Set("User-Agent", "curl/7.68.0")
	h.Set("Accept", "*/*")
	h.Set("Connection", "keep-alive")

	return h
}
