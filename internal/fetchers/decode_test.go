package fetchers

import (
	"bytes"
	"compress/flate"
	"compress/zlib"
	"io"
	"net/http"
	"strconv"
	"testing"

	"github.com/andybalholm/brotli"
)

func brotliBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := brotli.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		t.Fatalf("brotli压缩失败: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("brotli关闭失败: %v", err)
	}
	return buf.Bytes()
}

func deflateBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		t.Fatalf("创建deflate写入器失败: %v", err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatalf("deflate压缩失败: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("deflate关闭失败: %v", err)
	}
	return buf.Bytes()
}

func zlibBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		t.Fatalf("zlib压缩失败: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("zlib关闭失败: %v", err)
	}
	return buf.Bytes()
}

func TestDecodeBody(t *testing.T) {
	plain := []byte("<html><body>Oops! This page is in the shop</body></html>")

	tests := []struct {
		name        string
		encoding    string
		body        []byte
		want        string
		wantDecoded bool
		wantErr     bool
	}{
		{"无压缩原样返回", "", plain, string(plain), false, false},
		{"gzip交给colly处理", "gzip", plain, string(plain), false, false},
		{"brotli解压", "br", brotliBytes(t, plain), string(plain), true, false},
		{"编码名大小写不敏感", "BR", brotliBytes(t, plain), string(plain), true, false},
		{"zlib封装的deflate", "deflate", zlibBytes(t, plain), string(plain), true, false},
		{"裸DEFLATE流", "deflate", deflateBytes(t, plain), string(plain), true, false},
		{"损坏的brotli数据", "br", []byte("not brotli"), "not brotli", false, true},
		{"损坏的deflate数据", "deflate", []byte{0xff, 0xff, 0xff}, "\xff\xff\xff", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, decoded, err := DecodeBody(tt.encoding, tt.body)
			if (err != nil) != tt.wantErr {
				t.Fatalf("期望错误=%v, 实际=%v", tt.wantErr, err)
			}
			if decoded != tt.wantDecoded {
				t.Errorf("decoded: 期望 %v, 得到 %v", tt.wantDecoded, decoded)
			}
			if string(got) != tt.want {
				t.Errorf("期望 %q, 得到 %q", tt.want, got)
			}
		})
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func TestDecodingTransport(t *testing.T) {
	plain := "<html><body>Oops! This page is in the shop</body></html>"

	respond := func(encoding string, body []byte) http.RoundTripper {
		return roundTripFunc(func(req *http.Request) (*http.Response, error) {
			header := http.Header{}
			header.Set("Content-Type", "text/html")
			header.Set("Content-Length", strconv.Itoa(len(body)))
			if encoding != "" {
				header.Set("Content-Encoding", encoding)
			}
			return &http.Response{
				StatusCode:    http.StatusOK,
				Header:        header,
				Body:          io.NopCloser(bytes.NewReader(body)),
				ContentLength: int64(len(body)),
				Request:       req,
			}, nil
		})
	}

	tests := []struct {
		name    string
		base    http.RoundTripper
		want    string
		wantErr bool
	}{
		{"zlib deflate", respond("deflate", zlibBytes(t, []byte(plain))), plain, false},
		{"brotli", respond("br", brotliBytes(t, []byte(plain))), plain, false},
		{"未压缩不处理", respond("", []byte(plain)), plain, false},
		{"解压失败返回错误", respond("br", []byte("not brotli")), "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := &decodingTransport{base: tt.base}
			req, _ := http.NewRequest(http.MethodGet, "http://example.com/", nil)

			resp, err := transport.RoundTrip(req)
			if tt.wantErr {
				if err == nil {
					t.Fatal("期望解压错误")
				}
				return
			}
			if err != nil {
				t.Fatalf("RoundTrip失败: %v", err)
			}
			defer resp.Body.Close()

			body, _ := io.ReadAll(resp.Body)
			if string(body) != tt.want {
				t.Errorf("期望 %q, 得到 %q", tt.want, body)
			}
			if ce := resp.Header.Get("Content-Encoding"); ce != "" {
				t.Errorf("解压后不应保留Content-Encoding: %q", ce)
			}
			if resp.ContentLength != int64(len(body)) || resp.Header.Get("Content-Length") != strconv.Itoa(len(body)) {
				t.Errorf("Content-Length未更新: %d", resp.ContentLength)
			}
		})
	}
}
