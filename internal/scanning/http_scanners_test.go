package scanning

import (
	"bytes"
	"image"
	"image/png"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

func tinyPNG() []byte {
	var buf bytes.Buffer
	Expect(png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 1, 1)))).To(Succeed())
	return buf.Bytes()
}

var _ = Describe("Ollama", func() {
	var (
		server  *ghttp.Server
		scanner *Ollama
		record  Record
		err     error
	)

	BeforeEach(func() {
		server = ghttp.NewServer()
		scanner, err = NewOllama(server.URL(), "llava")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	JustBeforeEach(func() {
		record, err = scanner.ScanDocument(tinyPNG(), "image/png")
	})

	When("the model answers with JSON", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodPost, "/api/chat"),
				ghttp.VerifyContentType("application/json"),
				ghttp.RespondWithJSONEncoded(http.StatusOK, ollamaChatResponse{
					Message: ollamaMessage{Role: "assistant", Content: `{"client_detecte": "Acme Corp"}`},
					Done:    true,
				}),
			))
		})

		It("returns the parsed record", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(record.String("client_detecte")).To(Equal("Acme Corp"))
		})
	})

	When("the model answers with prose", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWithJSONEncoded(http.StatusOK, ollamaChatResponse{
				Message: ollamaMessage{Role: "assistant", Content: "I cannot read this document."},
			}))
		})

		It("returns a malformed response error", func() {
			Expect(err).To(MatchError(ErrMalformedResponse))
		})
	})

	When("the API fails", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusInternalServerError, "boom"))
		})

		It("returns a generic error", func() {
			Expect(err).To(HaveOccurred())
			Expect(err).NotTo(MatchError(ErrAuthentication))
			Expect(err).NotTo(MatchError(ErrMalformedResponse))
		})
	})
})

var _ = Describe("OpenAI", func() {
	var (
		server  *ghttp.Server
		scanner *OpenAI
		record  Record
		err     error
	)

	BeforeEach(func() {
		server = ghttp.NewServer()
		scanner, err = NewOpenAI(server.URL()+"/v1/", "sk-test", "gpt-4o")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	JustBeforeEach(func() {
		record, err = scanner.ScanDocument(tinyPNG(), "image/png")
	})

	When("the model answers with fenced JSON", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodPost, "/v1/chat/completions"),
				ghttp.VerifyHeaderKV("Authorization", "Bearer sk-test"),
				ghttp.RespondWith(http.StatusOK, `{"choices":[{"message":{"content":"`+"```json\\n{\\\"type_document\\\": \\\"devis\\\"}\\n```"+`"}}]}`),
			))
		})

		It("returns the parsed record", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(record.String("type_document")).To(Equal("devis"))
		})
	})

	When("the key is rejected", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusUnauthorized, `{"error":{"message":"Incorrect API key"}}`))
		})

		It("returns an authentication error", func() {
			Expect(err).To(MatchError(ErrAuthentication))
		})
	})

	When("there are no choices", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusOK, `{"choices":[]}`))
		})

		It("returns an error", func() {
			Expect(err).To(HaveOccurred())
		})
	})
})

var _ = Describe("NewOpenAI", func() {
	When("targeting api.openai.com", func() {
		It("requires an API key", func() {
			_, err := NewOpenAI("", "", "")
			Expect(err).To(MatchError(ContainSubstring("api key is required")))

			_, err = NewOpenAI("https://API.openai.com/v1/", "", "gpt-4o")
			Expect(err).To(HaveOccurred())
		})
	})

	When("targeting a self-hosted server", func() {
		var server *ghttp.Server

		BeforeEach(func() {
			server = ghttp.NewServer()
		})

		AfterEach(func() {
			server.Close()
		})

		It("accepts an empty key and sends no Authorization header", func() {
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodPost, "/v1/chat/completions"),
				func(w http.ResponseWriter, r *http.Request) {
					Expect(r.Header.Get("Authorization")).To(BeEmpty())
				},
				ghttp.RespondWith(http.StatusOK, `{"choices":[{"message":{"content":"{\"type_document\": \"facture\"}"}}]}`),
			))

			scanner, err := NewOpenAI(server.URL()+"/v1", "", "llava")
			Expect(err).NotTo(HaveOccurred())

			record, err := scanner.ScanDocument(tinyPNG(), "image/png")
			Expect(err).NotTo(HaveOccurred())
			Expect(record.String("type_document")).To(Equal("facture"))
		})
	})
})

var _ = Describe("prepareImageData", func() {
	It("passes PNG data through untouched", func() {
		data := tinyPNG()
		out, converted, err := prepareImageData(data, " IMAGE/PNG ")
		Expect(err).NotTo(HaveOccurred())
		Expect(converted).To(BeFalse())
		Expect(out).To(Equal(data))
	})

	It("rejects undecodable images", func() {
		_, _, err := prepareImageData([]byte("not an image"), "image/jpeg")
		Expect(err).To(HaveOccurred())
	})

	It("detects HEIC signatures", func() {
		Expect(isHEICFormat([]byte("\x00\x00\x00\x18ftypheic\x00\x00"))).To(BeTrue())
		Expect(isHEICFormat([]byte("short"))).To(BeFalse())
		Expect(isHEICMimeType("image/HEIF")).To(BeTrue())
	})
})
