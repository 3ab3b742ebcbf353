package fetchers

import (
	"bytes"
	"compress/flate"
	"compress/zlib"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/andybalholm/brotli"
)

// DecodeBody 根据Content-Encoding解压响应体
//
// gzip已由colly处理,这里只负责 br 和 deflate。deflate按RFC 9110是zlib封装的,
// 少数服务器发送裸DEFLATE流,zlib解析失败时按裸流重试。
// 返回值 decoded 表示是否发生了解压。
func DecodeBody(contentEncoding string, body []byte) (out []byte, decoded bool, err error) {
	encoding := strings.ToLower(strings.TrimSpace(contentEncoding))

	switch encoding {
	case "br":
		out, err = io.ReadAll(brotli.NewReader(bytes.NewReader(body)))
	case "deflate":
		out, err = inflate(body)
	default:
		return body, false, nil
	}
	if err != nil {
		return body, false, fmt.Errorf("%s解压失败: %w", encoding, err)
	}
	return out, true, nil
}

func inflate(body []byte) ([]byte, error) {
	if zr, err := zlib.NewReader(bytes.NewReader(body)); err == nil {
		out, readErr := io.ReadAll(zr)
		zr.Close()
		if readErr == nil {
			return out, nil
		}
	}

	fr := flate.NewReader(bytes.NewReader(body))
	defer fr.Close()
	return io.ReadAll(fr)
}

// decodingTransport 在colly读取响应之前解压br/deflate
//
// colly只识别gzip,并且会在OnResponse之前按Content-Type转换字符集。
// 解压放在传输层,colly的字符集转换和HTML解析看到的都是明文。
type decodingTransport struct {
	base http.RoundTripper
}

func (t *decodingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	encoding := resp.Header.Get("Content-Encoding")
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "br", "deflate":
	default:
		return resp, nil
	}

	raw, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("读取响应体失败: %w", err)
	}
	body, _, err := DecodeBody(encoding, raw)
	if err != nil {
		return nil, err
	}

	resp.Body = io.NopCloser(bytes.NewReader(body))
	resp.ContentLength = int64(len(body))
	resp.Header.Del("Content-Encoding")
	resp.Header.Set("Content-Length", strconv.Itoa(len(body)))
	resp.Uncompressed = true
	return resp, nil
}
