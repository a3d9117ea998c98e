package extract

import (
	"fmt"
	"strings"

	"github.com/adcompliance/auditor/internal/config"
	"github.com/adcompliance/auditor/internal/fetch"
	"github.com/adcompliance/auditor/internal/models"
	"github.com/adcompliance/auditor/internal/pipelineconfig"
)

// Catalog builds the per-Kind strategy Plan, per §4.10's ordered table.
type Catalog struct {
	fetcher     *fetch.Fetcher
	transcriber *Transcriber
	ocr         *OCRClient
	downloader  *AudioDownloader

	readerProxyURL string
	headlessEnabled bool
	minPDFChars     int
	maxPDFPages     int
}

func NewCatalog(f *fetch.Fetcher, cap config.CapabilityConfig, pc *pipelineconfig.PipelineConfig) *Catalog {
	return &Catalog{
		fetcher:         f,
		transcriber:     NewTranscriber(cap.TranscriberURL, cap.TranscriberKey),
		ocr:             NewOCRClient(cap.OCRURL, cap.OCRKey, pc.OCRLanguages),
		downloader:      NewAudioDownloader(cap.AudioDownloaderBin, pc.EnableAudioDownload),
		readerProxyURL:  "",
		headlessEnabled: pc.EnableHeadlessBrowser,
		minPDFChars:     pc.MinPDFChars,
		maxPDFPages:     pc.MaxPDFPages,
	}
}

// PlanFor resolves the ordered strategy list for a classified Kind, per
// the §4.10 table. Text needs no extractor: the pipeline passes the body
// straight to the ModelRouter.
func (c *Catalog) PlanFor(kind models.Kind, mime string) (Plan, error) {
	switch kind {
	case models.KindWebPage:
		return Plan{Strategies: []Strategy{
			NewReaderProxy(c.fetcher, c.readerProxyURL),
			NewReadabilityLocal(c.fetcher),
			NewHeadlessBrowser(c.fetcher, c.headlessEnabled),
			NewMetadataOnly(c.fetcher),
		}}, nil

	case models.KindYouTube:
		strategies := []Strategy{
			NewCaptionTrack(c.fetcher),
			NewOEmbed(c.fetcher),
		}
		if c.downloader.enabled {
			strategies = append(strategies, NewAudioDownloadThenTranscribe(c.downloader, c.transcriber))
		}
		return Plan{Strategies: strategies}, nil

	case models.KindMediaURL:
		if strings.HasPrefix(strings.ToLower(mime), "text/html") {
			return c.PlanFor(models.KindWebPage, mime)
		}
		return Plan{Strategies: []Strategy{
			NewTranscribeAudio(c.fetcher, c.transcriber),
		}}, nil

	case models.KindImage:
		return Plan{Strategies: []Strategy{
			NewImageOCR(c.ocr),
		}}, nil

	case models.KindAudio, models.KindVideo:
		return Plan{Strategies: []Strategy{
			NewTranscribeAudio(c.fetcher, c.transcriber),
		}}, nil

	case models.KindDocument:
		return c.planForDocument(mime)

	case models.KindText:
		return Plan{}, nil
	}

	return Plan{}, fmt.Errorf("no strategy plan for kind %q", kind)
}

func (c *Catalog) planForDocument(mime string) (Plan, error) {
	mime = strings.ToLower(strings.TrimSpace(mime))
	switch mime {
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return Plan{Strategies: []Strategy{NewDocxText()}}, nil
	case "application/msword":
		return Plan{Strategies: []Strategy{NewDocText()}}, nil
	case "application/pdf":
		return Plan{Strategies: []Strategy{NewPdfTextThenOCR(c.ocr, c.minPDFChars, c.maxPDFPages)}}, nil
	}
	return Plan{}, fmt.Errorf("unsupported document mime %q", mime)
}
