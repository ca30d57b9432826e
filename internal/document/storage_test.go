package document

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("LocalStorage", func() {
	var (
		tmpDir  string
		storage Storage
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		var err error
		storage, err = NewLocalStorage(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Save", func() {
		var (
			filename string
			data     []byte
			name     string
			err      error
		)

		BeforeEach(func() {
			filename = "DocScan_Export_20240115_1030.xlsx"
			data = []byte("workbook content")
		})

		JustBeforeEach(func() {
			name, err = storage.Save(filename, data)
		})

		When("saving succeeds", func() {
			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should return the stored name", func() {
				Expect(name).To(Equal(filename))
			})

			It("should save the file to disk", func() {
				content, readErr := os.ReadFile(filepath.Join(tmpDir, filename))
				Expect(readErr).NotTo(HaveOccurred())
				Expect(content).To(Equal(data))
			})
		})

		When("the filename has unsafe characters", func() {
			BeforeEach(func() {
				filename = "Acme/Corp: facture?.xlsx"
			})

			It("should store a cleaned name inside the directory", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(name).To(Equal("Corp facture.xlsx"))
				Expect(filepath.Join(tmpDir, name)).To(BeAnExistingFile())
			})
		})

		When("the name is already taken", func() {
			BeforeEach(func() {
				Expect(os.WriteFile(filepath.Join(tmpDir, "scan.xlsx"), []byte("first"), 0644)).To(Succeed())
				Expect(os.WriteFile(filepath.Join(tmpDir, "scan_2.xlsx"), []byte("second"), 0644)).To(Succeed())
				filename = "scan.xlsx"
			})

			It("should keep the existing files and pick the next free suffix", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(name).To(Equal("scan_3.xlsx"))

				first, readErr := os.ReadFile(filepath.Join(tmpDir, "scan.xlsx"))
				Expect(readErr).NotTo(HaveOccurred())
				Expect(first).To(Equal([]byte("first")))

				third, readErr := os.ReadFile(filepath.Join(tmpDir, "scan_3.xlsx"))
				Expect(readErr).NotTo(HaveOccurred())
				Expect(third).To(Equal(data))
			})
		})
	})
})
