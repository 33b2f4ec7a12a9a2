package position

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"slidefit/assets"
	"slidefit/config"
	"slidefit/css"
	"slidefit/deck"
	"slidefit/inline"
	"slidefit/layout"
	"slidefit/state"
)

// placement records geometry resolved for one image so asset treatments can
// run after the positioning pass.
type placement struct {
	ref  string
	el   *etree.Element
	size layout.Dimension
}

// processDeck processes a single deck document. "src" is part of the source
// path (always including file name) relative to the original path. When an
// actual file was specified it will be just base file name without a path.
// When looking inside archive or directory it will be relative path inside
// archive or directory (including base file name). "dst" is the destination
// directory where the processed document should be written.
func processDeck(ctx context.Context, r io.Reader, fetcher assets.Fetcher, src, dst string, log *zap.Logger) (rerr error) {
	env := state.EnvFromContext(ctx)

	var outputName string

	log.Info("Document starting", zap.String("from", src))
	defer panicGuard(log, &outputName, &rerr, time.Now())

	doc, err := deck.Load(r, src, env.DefaultStyle, css.NewParser(log), log)
	if err != nil {
		return fmt.Errorf("unable to parse deck source (%s): %w", src, err)
	}

	deckID := ensureDeckID(doc, log)

	// Save parsed document for debugging
	if env.Rpt != nil {
		if data, err := doc.Bytes(); err == nil {
			env.Rpt.StoreData(fmt.Sprintf("parsed/%s-%s", deckID, filepath.Base(src)), data)
		}
	}

	if env.Cfg.Deck.InlineSVG {
		inline.New(fetcher, log).InlineAll(ctx, doc.Tree)
	}

	prober := assets.NewProber(fetcher, env.Cache, log)
	drv := deck.NewDriver(env.Cfg.Deck, prober, log)

	var placed []placement
	drv.Subscribe(func(ev *deck.Event) {
		placed = append(placed, placement{ref: ev.Ref, el: ev.Element, size: ev.Result.Size})
	})

	stats, err := drv.Position(ctx, doc)
	if err != nil {
		// structural problems fail their containers, the rest of the document
		// is still worth writing out
		log.Error("Document has structural problems", zap.String("from", src), zap.Error(err))
	}
	log.Info("Positioning done",
		zap.Int("containers", stats.Containers),
		zap.Int("images", stats.Images),
		zap.Int("positioned", stats.Positioned),
		zap.Int("skipped", stats.Skipped))

	// Determine output file name and path based on input and configuration.
	outputName = buildOutputPath(collectValues(doc, env.Cfg.Deck.SlideTag, src, deckID), src, dst, env)

	applyImageTreatments(placed, prober, filepath.Dir(outputName), &env.Cfg.Deck.Images, log)

	data, err := doc.Bytes()
	if err != nil {
		return fmt.Errorf("unable to serialize document: %w", err)
	}
	if err := writeDocument(data, outputName, env.Overwrite, log); err != nil {
		return err
	}

	// Store processing result for debugging
	if env.Rpt != nil {
		env.Rpt.StoreData(fmt.Sprintf("tree/%s.txt", deckID), []byte(doc.DebugDump(env.Cfg.Deck.SlideTag, env.Cfg.Deck.ContainerClass)))
		env.Rpt.Store(fmt.Sprintf("result-%s%s", deckID, filepath.Ext(outputName)), outputName)
	}
	return nil
}

// ensureDeckID makes sure the document root carries a valid UUID identity,
// generating one when it is absent or malformed.
func ensureDeckID(doc *deck.Document, log *zap.Logger) string {
	root := doc.Tree.Root()
	id := root.SelectAttrValue("data-deck-id", "")
	if _, err := uuid.Parse(id); err == nil {
		return id
	}
	newID, err := uuid.NewV7()
	if err != nil {
		// extremely unlikely, fall back to a random one
		newID = uuid.New()
	}
	if id != "" {
		log.Warn("Document has invalid ID, correcting", zap.String("old_id", id), zap.Stringer("new_id", newID))
	}
	root.CreateAttr("data-deck-id", newID.String())
	return newID.String()
}

// applyImageTreatments physically rewrites image assets for positioned
// elements: rasterizing SVG references at their resolved size and prescaling
// raster images to match. Treated assets are written under the output
// directory at the reference's relative path.
func applyImageTreatments(placed []placement, prober *assets.Prober, outDir string, cfg *config.ImagesConfig, log *zap.Logger) {
	if !cfg.RasterizeSVG && cfg.Prescale == config.PrescaleModeNone {
		return
	}
	for _, p := range placed {
		if p.ref == "" || p.el.Tag == "svg" {
			// inlined svg is markup now, nothing to rewrite on disk
			continue
		}
		data, ok := prober.Bytes(p.ref)
		if !ok {
			// dimensions came from the cache, nothing was fetched this pass
			continue
		}

		if assets.IsSVG(data) {
			if !cfg.RasterizeSVG {
				continue
			}
			rendered, err := assets.RasterizeSVG(data, p.size)
			if err != nil {
				log.Warn("Unable to rasterize SVG", zap.String("ref", p.ref), zap.Error(err))
				continue
			}
			newRef := strings.TrimSuffix(p.ref, path.Ext(p.ref)) + ".png"
			if err := writeAsset(outDir, newRef, rendered); err != nil {
				log.Warn("Unable to write rasterized SVG", zap.String("ref", newRef), zap.Error(err))
				continue
			}
			p.el.CreateAttr("src", newRef)
			log.Debug("Rasterized SVG reference", zap.String("from", p.ref), zap.String("to", newRef))
			continue
		}

		if cfg.Prescale == config.PrescaleModeNone {
			continue
		}
		out, changed, err := assets.Prescale(data, p.size, cfg.Prescale, cfg.JPEGQuality)
		if err != nil {
			log.Warn("Unable to prescale image", zap.String("ref", p.ref), zap.Error(err))
			continue
		}
		if !changed {
			continue
		}
		if err := writeAsset(outDir, p.ref, out); err != nil {
			log.Warn("Unable to write prescaled image", zap.String("ref", p.ref), zap.Error(err))
			continue
		}
		log.Debug("Prescaled image", zap.String("ref", p.ref), zap.Int("width", p.size.Width), zap.Int("height", p.size.Height))
	}
}

// writeAsset stores asset data under the output directory, refusing
// references that are remote or escape it.
func writeAsset(outDir, ref string, data []byte) error {
	if u, err := url.Parse(ref); err == nil && u.Scheme != "" {
		return fmt.Errorf("remote reference %q cannot be rewritten", ref)
	}
	target := filepath.Join(outDir, filepath.FromSlash(path.Clean(ref)))
	if rel, err := filepath.Rel(outDir, target); err != nil || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("reference %q escapes output directory", ref)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	return os.WriteFile(target, data, 0644)
}
