package document

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"regexp"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/zombor/docscan/internal/scanning"
)

func multipartBody(filenames ...string) (*bytes.Buffer, string) {
	var b bytes.Buffer
	writer := multipart.NewWriter(&b)
	for _, name := range filenames {
		part, err := writer.CreateFormFile("file", name)
		Expect(err).NotTo(HaveOccurred())
		_, err = part.Write([]byte("fake image data " + name))
		Expect(err).NotTo(HaveOccurred())
	}
	Expect(writer.Close()).To(Succeed())
	return &b, writer.FormDataContentType()
}

func decodeBody(resp *http.Response, v any) {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	Expect(json.Unmarshal(body, v)).To(Succeed())
}

var _ = Describe("Server", func() {
	var (
		scanner     *mockScanner
		service     *Service
		server      *Server
		auth        BasicAuth
		ghttpServer *ghttp.Server
	)

	setupServer := func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
		server = NewServerWithMux(service, auth, http.NewServeMux())
		ghttpServer = ghttp.NewServer()
		for _, method := range []string{"GET", "POST", "DELETE", "OPTIONS"} {
			ghttpServer.RouteToHandler(method, regexp.MustCompile(".*"), server.ServeHTTP)
		}
	}

	upload := func(filenames ...string) *http.Response {
		body, contentType := multipartBody(filenames...)
		resp, err := http.Post(ghttpServer.URL()+"/api/documents", contentType, body)
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	get := func(path string) *http.Response {
		resp, err := http.Get(ghttpServer.URL() + path)
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	BeforeEach(func() {
		scanner = newMockScanner()
		service = NewServiceWithDeps(scanner, NewHistory(), DefaultCatalog(), &mockIDGenerator{}, &mockTimeSource{now: fixedTime})
		auth = BasicAuth{}
	})

	JustBeforeEach(func() {
		setupServer()
	})

	AfterEach(func() {
		if ghttpServer != nil {
			ghttpServer.Close()
			ghttpServer = nil
		}
	})

	Describe("handleIndex", func() {
		When("request method is GET", func() {
			It("should return HTML containing DocScan", func() {
				resp := get("/")
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				Expect(resp.Header.Get("Content-Type")).To(HavePrefix("text/html"))
				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(string(body)).To(ContainSubstring("DocScan"))
			})
		})

		When("request method is not GET", func() {
			It("should return status Method Not Allowed", func() {
				resp, err := http.Post(ghttpServer.URL()+"/", "text/plain", nil)
				Expect(err).NotTo(HaveOccurred())
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusMethodNotAllowed))
			})
		})
	})

	Describe("CORS", func() {
		It("should answer preflight requests", func() {
			req, err := http.NewRequest("OPTIONS", ghttpServer.URL()+"/api/documents", nil)
			Expect(err).NotTo(HaveOccurred())
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(resp.Header.Get("Access-Control-Allow-Origin")).To(Equal("*"))
		})
	})

	Describe("handleUploadDocuments", func() {
		When("upload succeeds", func() {
			It("should return the extracted document", func() {
				resp := upload("acme.png")
				Expect(resp.StatusCode).To(Equal(http.StatusCreated))

				var report BatchReport
				decodeBody(resp, &report)
				Expect(report.Results).To(HaveLen(1))
				Expect(report.Results[0].Document.ID).To(Equal("doc-1"))
				Expect(report.Results[0].Document.Client).To(Equal("Acme Corp"))
				Expect(report.Results[0].Document.Type).To(Equal(TypeInvoice))
			})

			It("should pass the resolved content type to the scanner", func() {
				resp := upload("scan.pdf")
				resp.Body.Close()
				Expect(scanner.contentTypes).To(Equal([]string{"application/pdf"}))
			})
		})

		When("several files are uploaded", func() {
			BeforeEach(func() {
				scanner.results = []scanResult{
					{record: acmeInvoice()},
					{err: errors.New("timeout")},
				}
			})

			It("should report each file in order", func() {
				resp := upload("a.png", "b.png")
				Expect(resp.StatusCode).To(Equal(http.StatusCreated))

				var report BatchReport
				decodeBody(resp, &report)
				Expect(report.Results).To(HaveLen(2))
				Expect(report.Results[0].Filename).To(Equal("a.png"))
				Expect(report.Results[1].Filename).To(Equal("b.png"))
				Expect(report.Results[1].Kind).To(Equal(FailureGeneric))
				Expect(service.Documents(Filter{})).To(HaveLen(1))
			})
		})

		When("every file fails", func() {
			BeforeEach(func() {
				scanner.scanErr = scanning.ErrAuthentication
			})

			It("should return status Bad Request with the failure kinds", func() {
				resp := upload("a.png", "b.png")
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))

				var report BatchReport
				decodeBody(resp, &report)
				Expect(report.Results[0].Kind).To(Equal(FailureAuthentication))
				Expect(report.Results[1].Kind).To(Equal(FailureSkipped))
			})
		})

		When("no file is provided", func() {
			It("should return status Bad Request", func() {
				resp := upload()
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))

				var body map[string]string
				decodeBody(resp, &body)
				Expect(body["error"]).To(ContainSubstring("No file"))
			})
		})

		When("the form is invalid", func() {
			It("should return status Bad Request", func() {
				resp, err := http.Post(ghttpServer.URL()+"/api/documents", "multipart/form-data", bytes.NewBufferString("invalid"))
				Expect(err).NotTo(HaveOccurred())
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			})
		})
	})

	Describe("handleListDocuments", func() {
		BeforeEach(func() {
			scanner.results = []scanResult{
				{record: acmeInvoice()},
				{record: scanning.Record{"client_detecte": "Zeta", "type_document": "devis"}},
			}
			service.ProcessUpload("a.png", []byte("a"), "image/png")
			service.ProcessUpload("b.png", []byte("b"), "image/png")
		})

		It("should return every document", func() {
			resp := get("/api/documents")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(Equal("application/json"))

			var docs []*Document
			decodeBody(resp, &docs)
			Expect(docs).To(HaveLen(2))
			Expect(docs[0].ID).To(Equal("doc-1"))
		})

		It("should filter by client", func() {
			var docs []*Document
			decodeBody(get("/api/documents?client=Zeta"), &docs)
			Expect(docs).To(HaveLen(1))
			Expect(docs[0].Client).To(Equal("Zeta"))
		})

		It("should filter by type", func() {
			var docs []*Document
			decodeBody(get("/api/documents?type=facture"), &docs)
			Expect(docs).To(HaveLen(1))
			Expect(docs[0].Client).To(Equal("Acme Corp"))
		})

		It("should reject unknown types", func() {
			resp := get("/api/documents?type=contrat")
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("handleGetDocument", func() {
		BeforeEach(func() {
			service.ProcessUpload("a.png", []byte("a"), "image/png")
		})

		When("the document exists", func() {
			It("should return it", func() {
				resp := get("/api/documents/doc-1")
				Expect(resp.StatusCode).To(Equal(http.StatusOK))

				var doc Document
				decodeBody(resp, &doc)
				Expect(doc.Filename).To(Equal("a.png"))
				Expect(doc.Flat[ColDocumentNumber]).To(Equal("F-2024-001"))
				Expect(doc.Lines).To(HaveLen(1))
			})
		})

		When("the document does not exist", func() {
			It("should return status Not Found", func() {
				resp := get("/api/documents/missing")
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			})
		})
	})

	Describe("handleExportDocument", func() {
		BeforeEach(func() {
			service.ProcessUpload("acme.png", []byte("a"), "image/png")
		})

		It("should return a workbook attachment", func() {
			resp := get("/api/documents/doc-1/export")
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(Equal(xlsxMIME))
			Expect(resp.Header.Get("Content-Disposition")).To(ContainSubstring("Acme Corp_facture_acme.xlsx"))

			data, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			f := openWorkbook(data)
			Expect(f.GetSheetList()).To(Equal([]string{SheetSummary, SheetDetailLines}))
		})

		It("should return status Not Found for unknown documents", func() {
			resp := get("/api/documents/missing/export")
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})
	})

	Describe("handleExport", func() {
		BeforeEach(func() {
			scanner.results = []scanResult{
				{record: acmeInvoice()},
				{record: scanning.Record{"client_detecte": "Zeta", "type_document": "devis"}},
			}
			service.ProcessUpload("a.png", []byte("a"), "image/png")
			service.ProcessUpload("b.png", []byte("b"), "image/png")
		})

		It("should return the organized workbook", func() {
			resp := get("/api/export")
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Disposition")).To(ContainSubstring("DocScan_Export_20240115_1030.xlsx"))

			data, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			f := openWorkbook(data)
			Expect(f.GetSheetList()).To(Equal([]string{
				SheetGeneralIndex,
				"Acme Corp - Factures",
				"Acme Corp - Factures DET",
				"Zeta - Devis",
			}))
		})

		It("should restrict the workbook to the filter", func() {
			resp := get("/api/export?client=Zeta")
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			data, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			f := openWorkbook(data)
			Expect(f.GetSheetList()).To(Equal([]string{SheetGeneralIndex, "Zeta - Devis"}))
		})

		It("should reject unknown types", func() {
			resp := get("/api/export?type=contrat")
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("handleClearDocuments", func() {
		BeforeEach(func() {
			service.ProcessUpload("a.png", []byte("a"), "image/png")
		})

		It("should empty the history", func() {
			req, err := http.NewRequest("DELETE", ghttpServer.URL()+"/api/documents", nil)
			Expect(err).NotTo(HaveOccurred())
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(service.Documents(Filter{})).To(BeEmpty())
		})
	})

	Describe("handleStats", func() {
		BeforeEach(func() {
			service.ProcessUpload("a.png", []byte("a"), "image/png")
		})

		It("should summarize the history", func() {
			resp := get("/api/stats")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var stats Stats
			decodeBody(resp, &stats)
			Expect(stats.Documents).To(Equal(1))
			Expect(stats.Clients).To(HaveLen(1))
			Expect(stats.TotalDue).To(BeNumerically("~", 120.50, 0.001))
		})
	})

	Describe("basic auth", func() {
		BeforeEach(func() {
			auth = BasicAuth{Username: "user", Password: "pass"}
		})

		It("should reject requests without credentials", func() {
			resp := get("/api/documents")
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
			Expect(resp.Header.Get("WWW-Authenticate")).To(ContainSubstring("Basic"))
		})

		It("should accept valid credentials", func() {
			req, err := http.NewRequest("GET", ghttpServer.URL()+"/api/documents", nil)
			Expect(err).NotTo(HaveOccurred())
			req.SetBasicAuth("user", "pass")
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})
	})

	Describe("authenticate", func() {
		var req *http.Request

		BeforeEach(func() {
			auth = BasicAuth{Username: "user", Password: "pass"}
			var err error
			req, err = http.NewRequest("GET", "/", nil)
			Expect(err).NotTo(HaveOccurred())
		})

		When("valid credentials are provided", func() {
			It("should return true", func() {
				req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte("user:pass")))
				Expect(server.authenticate(req)).To(BeTrue())
			})
		})

		When("invalid credentials are provided", func() {
			It("should return false", func() {
				req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte("user:wrong")))
				Expect(server.authenticate(req)).To(BeFalse())
			})
		})

		When("the header is malformed", func() {
			It("should return false", func() {
				req.Header.Set("Authorization", "Basic !!!")
				Expect(server.authenticate(req)).To(BeFalse())
			})
		})

		When("no authorization header is provided", func() {
			It("should return false", func() {
				Expect(server.authenticate(req)).To(BeFalse())
			})
		})

		When("auth is disabled", func() {
			BeforeEach(func() {
				auth = BasicAuth{}
			})

			It("should return true", func() {
				Expect(server.authenticate(req)).To(BeTrue())
			})
		})
	})
})
