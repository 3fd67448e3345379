// Package slides writes layout documents as PPTX decks: one slide per page,
// text runs as text boxes, shapes as preset geometries and images as pictures.
package slides

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"math"
	"path"
	"strconv"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"github.com/ByLCY/vellum/layout"
	"github.com/ByLCY/vellum/renderer"
)

// EMUPerPx 是 96 DPI 下每像素的 EMU 数。
const EMUPerPx = 9525

// PowerPoint 接受的幻灯片尺寸范围（EMU）。
const (
	minSlideEMU = 914400
	maxSlideEMU = 51206400
)

// Renderer encodes layout documents into PPTX.
type Renderer struct {
	log     *zap.Logger
	creator string
}

var _ renderer.Renderer = (*Renderer)(nil)

// Options configures the slide renderer.
type Options struct {
	Creator string
	Logger  *zap.Logger
}

// NewRenderer creates a PPTX renderer.
func NewRenderer(opts Options) *Renderer {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Creator == "" {
		opts.Creator = "vellum"
	}
	return &Renderer{log: log.Named("pptx"), creator: opts.Creator}
}

type media struct {
	name string
	data []byte
}

// Render writes the whole deck into memory.
func (r *Renderer) Render(doc *layout.Document) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("渲染结果为空")
	}
	if len(doc.Pages) == 0 {
		return nil, fmt.Errorf("缺少可渲染的页面")
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	if err := r.writeDeck(zw, doc); err != nil {
		zw.Close()
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("写入 PPTX 失败: %w", err)
	}
	r.log.Debug("PPTX rendered", zap.Int("slides", len(doc.Pages)), zap.Int("bytes", buf.Len()))
	return buf.Bytes(), nil
}

func (r *Renderer) writeDeck(zw *zip.Writer, doc *layout.Document) error {
	first := doc.Pages[0]
	parts := []struct {
		name string
		doc  *etree.Document
	}{
		{"[Content_Types].xml", contentTypes(len(doc.Pages))},
		{"_rels/.rels", packageRels()},
		{corePart, coreProps(doc.Title, r.creator)},
		{presentation, presentationXML(len(doc.Pages), first.Width, first.Height)},
		{relsPath(presentation), presentationRels(len(doc.Pages))},
		{relsPath(masterPart), relationships(
			rel{"rId1", relLayout, "../slideLayouts/slideLayout1.xml"},
			rel{"rId2", relTheme, "../theme/theme1.xml"},
		)},
		{relsPath(layoutPart), relationships(rel{"rId1", relMaster, "../slideMasters/slideMaster1.xml"})},
	}
	for _, p := range parts {
		if err := writeXMLToZip(zw, p.name, p.doc); err != nil {
			return err
		}
	}
	for _, p := range [][2]string{{masterPart, slideMasterXML}, {layoutPart, slideLayoutXML}, {themePart, themeXML}} {
		if err := writeDataToZip(zw, p[0], []byte(p[1])); err != nil {
			return err
		}
	}

	var allMedia []media
	for i, page := range doc.Pages {
		slide, rels, pics, err := buildSlide(page, len(allMedia))
		if err != nil {
			return fmt.Errorf("第 %d 页: %w", i+1, err)
		}
		name := fmt.Sprintf("ppt/slides/slide%d.xml", i+1)
		if err := writeXMLToZip(zw, name, slide); err != nil {
			return err
		}
		if err := writeXMLToZip(zw, relsPath(name), rels); err != nil {
			return err
		}
		allMedia = append(allMedia, pics...)
	}
	for _, m := range allMedia {
		if err := writeDataToZip(zw, m.name, m.data); err != nil {
			return err
		}
	}
	return nil
}

// buildSlide 生成单页幻灯片及其关系，图片从 mediaBase+1 起编号。
func buildSlide(page layout.Page, mediaBase int) (*etree.Document, *etree.Document, []media, error) {
	doc := newXML()
	sld := doc.CreateElement("p:sld")
	sld.CreateAttr("xmlns:a", nsA)
	sld.CreateAttr("xmlns:r", nsR)
	sld.CreateAttr("xmlns:p", nsP)
	tree := sld.CreateElement("p:cSld").CreateElement("p:spTree")
	groupHeader(tree)
	sld.CreateElement("p:clrMapOvr").CreateElement("a:masterClrMapping")

	rels := []rel{{"rId1", relLayout, "../slideLayouts/slideLayout1.xml"}}
	var pics []media
	id := 1
	for _, it := range page.Items {
		id++
		switch v := it.(type) {
		case *layout.TextRun:
			writeText(tree, id, v)
		case *layout.ShapeItem:
			writeShape(tree, id, v)
		case *layout.ImageItem:
			if len(v.Data) == 0 {
				continue
			}
			ext := "png"
			if v.Format == "jpeg" {
				ext = "jpeg"
			}
			name := fmt.Sprintf("image%d.%s", mediaBase+len(pics)+1, ext)
			rid := fmt.Sprintf("rId%d", len(rels)+1)
			rels = append(rels, rel{rid, relImage, "../media/" + name})
			pics = append(pics, media{name: "ppt/media/" + name, data: v.Data})
			writePicture(tree, id, rid, v)
		default:
			return nil, nil, nil, fmt.Errorf("未知图元类型 %T", it)
		}
	}
	return doc, relationships(rels...), pics, nil
}

func groupHeader(tree *etree.Element) {
	nonVisual(tree, "p:nvGrpSpPr", "p:cNvGrpSpPr", 1, "")
	xfrm := tree.CreateElement("p:grpSpPr").CreateElement("a:xfrm")
	for _, tag := range []string{"a:off", "a:ext", "a:chOff", "a:chExt"} {
		e := xfrm.CreateElement(tag)
		if tag == "a:off" || tag == "a:chOff" {
			e.CreateAttr("x", "0")
			e.CreateAttr("y", "0")
		} else {
			e.CreateAttr("cx", "0")
			e.CreateAttr("cy", "0")
		}
	}
}

func writeShape(tree *etree.Element, id int, s *layout.ShapeItem) {
	sp := tree.CreateElement("p:sp")
	nonVisual(sp, "p:nvSpPr", "p:cNvSpPr", id, "Shape")
	pr := sp.CreateElement("p:spPr")
	transform(pr, s.Rect)

	switch {
	case s.Kind == layout.ShapeCircle:
		presetGeom(pr, "ellipse")
	case s.CornerRadiusPx > 0:
		// roundRect 的 adj 以短边为基准，最大 50000 即半圆角。
		short := math.Min(s.Rect.W, s.Rect.H)
		adj := 0
		if short > 0 {
			adj = min(50000, int(math.Round(s.CornerRadiusPx/short*100000)))
		}
		gd := presetGeom(pr, "roundRect").CreateElement("a:gd")
		gd.CreateAttr("name", "adj")
		gd.CreateAttr("fmla", "val "+strconv.Itoa(adj))
	default:
		presetGeom(pr, "rect")
	}

	if !solidFill(pr, s.FillColor, s.Opacity) {
		pr.CreateElement("a:noFill")
	}
	ln := pr.CreateElement("a:ln")
	if s.StrokeWidthPx > 0 && solidFill(ln, s.StrokeColor, s.Opacity) {
		ln.CreateAttr("w", strconv.Itoa(emu(s.StrokeWidthPx)))
		switch s.BorderStyle {
		case "dashed":
			ln.CreateElement("a:prstDash").CreateAttr("val", "dash")
		case "dotted":
			ln.CreateElement("a:prstDash").CreateAttr("val", "sysDot")
		}
	} else {
		ln.CreateElement("a:noFill")
	}

	if sh := s.Shadow; sh != nil && sh.Color != "" {
		shd := pr.CreateElement("a:effectLst").CreateElement("a:outerShdw")
		shd.CreateAttr("blurRad", strconv.Itoa(emu(sh.Blur)))
		shd.CreateAttr("dist", strconv.Itoa(emu(math.Hypot(sh.OffsetX, sh.OffsetY))))
		dir := math.Atan2(sh.OffsetY, sh.OffsetX) * 180 / math.Pi
		if dir < 0 {
			dir += 360
		}
		shd.CreateAttr("dir", strconv.Itoa(int(math.Round(dir*60000))%21600000))
		shd.CreateAttr("algn", "ctr")
		shd.CreateAttr("rotWithShape", "0")
		srgb(shd, sh.Color, s.Opacity)
	}
}

func writeText(tree *etree.Element, id int, run *layout.TextRun) {
	sp := tree.CreateElement("p:sp")
	nonVisual(sp, "p:nvSpPr", "p:cNvSpPr", id, "Text").CreateAttr("txBox", "1")
	pr := sp.CreateElement("p:spPr")
	transform(pr, run.Rect)
	presetGeom(pr, "rect")
	pr.CreateElement("a:noFill")

	body := sp.CreateElement("p:txBody")
	bp := body.CreateElement("a:bodyPr")
	bp.CreateAttr("wrap", "none")
	for _, inset := range []string{"lIns", "tIns", "rIns", "bIns"} {
		bp.CreateAttr(inset, "0")
	}
	bp.CreateAttr("anchor", "ctr")
	bp.CreateElement("a:noAutofit")
	body.CreateElement("a:lstStyle")

	p := body.CreateElement("a:p")
	algn := "l"
	switch run.Align {
	case "center":
		algn = "ctr"
	case "right":
		algn = "r"
	case "justify":
		algn = "just"
	}
	p.CreateElement("a:pPr").CreateAttr("algn", algn)
	r := p.CreateElement("a:r")
	rpr := r.CreateElement("a:rPr")
	rpr.CreateAttr("lang", "en-US")
	rpr.CreateAttr("sz", strconv.Itoa(int(math.Round(layout.PxToPt(run.FontSizePx)*100))))
	if run.Weight >= 600 {
		rpr.CreateAttr("b", "1")
	}
	if run.Italic {
		rpr.CreateAttr("i", "1")
	}
	rpr.CreateAttr("dirty", "0")
	solidFill(rpr, run.Color, run.Opacity)
	rpr.CreateElement("a:latin").CreateAttr("typeface", run.Family)
	r.CreateElement("a:t").SetText(run.Text)
}

func writePicture(tree *etree.Element, id int, rid string, img *layout.ImageItem) {
	pic := tree.CreateElement("p:pic")
	nonVisual(pic, "p:nvPicPr", "p:cNvPicPr", id, "Picture").CreateElement("a:picLocks").CreateAttr("noChangeAspect", "1")
	fill := pic.CreateElement("p:blipFill")
	blip := fill.CreateElement("a:blip")
	blip.CreateAttr("r:embed", rid)
	if img.Opacity > 0 && img.Opacity < 1 {
		blip.CreateElement("a:alphaModFix").CreateAttr("amt", strconv.Itoa(int(math.Round(img.Opacity*100000))))
	}
	fill.CreateElement("a:stretch").CreateElement("a:fillRect")
	pr := pic.CreateElement("p:spPr")
	transform(pr, img.Rect)
	presetGeom(pr, "rect")
}

// nonVisual 写入 cNvPr/inner/nvPr 三元组并返回 inner 元素。
func nonVisual(parent *etree.Element, outer, inner string, id int, kind string) *etree.Element {
	nv := parent.CreateElement(outer)
	c := nv.CreateElement("p:cNvPr")
	c.CreateAttr("id", strconv.Itoa(id))
	name := ""
	if kind != "" {
		name = fmt.Sprintf("%s %d", kind, id)
	}
	c.CreateAttr("name", name)
	el := nv.CreateElement(inner)
	nv.CreateElement("p:nvPr")
	return el
}

// presetGeom 写入预设几何并返回其 a:avLst。
func presetGeom(pr *etree.Element, prst string) *etree.Element {
	geom := pr.CreateElement("a:prstGeom")
	geom.CreateAttr("prst", prst)
	return geom.CreateElement("a:avLst")
}

func transform(pr *etree.Element, rc layout.Rect) {
	xfrm := pr.CreateElement("a:xfrm")
	off := xfrm.CreateElement("a:off")
	off.CreateAttr("x", strconv.Itoa(emu(rc.X)))
	off.CreateAttr("y", strconv.Itoa(emu(rc.Y)))
	ext := xfrm.CreateElement("a:ext")
	ext.CreateAttr("cx", strconv.Itoa(max(0, emu(rc.W))))
	ext.CreateAttr("cy", strconv.Itoa(max(0, emu(rc.H))))
}

// solidFill 写入 a:solidFill；颜色为空或完全透明时不写并返回 false。
func solidFill(parent *etree.Element, hex string, opacity float64) bool {
	if hex == "" {
		return false
	}
	if _, _, _, a := layout.HexToRGBA(hex); float64(a)*opacity <= 0 {
		return false
	}
	srgb(parent.CreateElement("a:solidFill"), hex, opacity)
	return true
}

func srgb(parent *etree.Element, hex string, opacity float64) {
	r, g, b, a := layout.HexToRGBA(hex)
	clr := parent.CreateElement("a:srgbClr")
	clr.CreateAttr("val", fmt.Sprintf("%02X%02X%02X", r, g, b))
	if alpha := float64(a) / 255 * opacity; alpha < 1 {
		clr.CreateElement("a:alpha").CreateAttr("val", strconv.Itoa(int(math.Round(alpha*100000))))
	}
}

func emu(px float64) int { return int(math.Round(px * EMUPerPx)) }

func slideEMU(px float64) int { return min(maxSlideEMU, max(minSlideEMU, emu(px))) }

type rel struct {
	id, typ, target string
}

func relationships(rels ...rel) *etree.Document {
	doc := newXML()
	root := doc.CreateElement("Relationships")
	root.CreateAttr("xmlns", nsRel)
	for _, r := range rels {
		e := root.CreateElement("Relationship")
		e.CreateAttr("Id", r.id)
		e.CreateAttr("Type", r.typ)
		e.CreateAttr("Target", r.target)
	}
	return doc
}

func packageRels() *etree.Document {
	return relationships(
		rel{"rId1", relOffice, presentation},
		rel{"rId2", relCore, corePart},
	)
}

func presentationRels(slides int) *etree.Document {
	rels := []rel{{"rId1", relMaster, "slideMasters/slideMaster1.xml"}}
	for i := 1; i <= slides; i++ {
		rels = append(rels, rel{fmt.Sprintf("rId%d", i+1), relSlide, fmt.Sprintf("slides/slide%d.xml", i)})
	}
	rels = append(rels, rel{fmt.Sprintf("rId%d", slides+2), relTheme, "theme/theme1.xml"})
	return relationships(rels...)
}

func presentationXML(slides int, width, height float64) *etree.Document {
	doc := newXML()
	root := doc.CreateElement("p:presentation")
	root.CreateAttr("xmlns:a", nsA)
	root.CreateAttr("xmlns:r", nsR)
	root.CreateAttr("xmlns:p", nsP)
	master := root.CreateElement("p:sldMasterIdLst").CreateElement("p:sldMasterId")
	master.CreateAttr("id", "2147483648")
	master.CreateAttr("r:id", "rId1")
	list := root.CreateElement("p:sldIdLst")
	for i := 1; i <= slides; i++ {
		s := list.CreateElement("p:sldId")
		s.CreateAttr("id", strconv.Itoa(255+i))
		s.CreateAttr("r:id", fmt.Sprintf("rId%d", i+1))
	}
	size := root.CreateElement("p:sldSz")
	size.CreateAttr("cx", strconv.Itoa(slideEMU(width)))
	size.CreateAttr("cy", strconv.Itoa(slideEMU(height)))
	notes := root.CreateElement("p:notesSz")
	notes.CreateAttr("cx", "6858000")
	notes.CreateAttr("cy", "9144000")
	return doc
}

func contentTypes(slides int) *etree.Document {
	doc := newXML()
	root := doc.CreateElement("Types")
	root.CreateAttr("xmlns", nsCT)
	for _, d := range [][2]string{{"jpeg", "image/jpeg"}, {"png", "image/png"}, {"rels", ctRels}, {"xml", "application/xml"}} {
		e := root.CreateElement("Default")
		e.CreateAttr("Extension", d[0])
		e.CreateAttr("ContentType", d[1])
	}
	override := func(part, ct string) {
		o := root.CreateElement("Override")
		o.CreateAttr("PartName", "/"+part)
		o.CreateAttr("ContentType", ct)
	}
	override(presentation, ctPresent)
	override(masterPart, ctMaster)
	override(layoutPart, ctLayout)
	override(themePart, ctTheme)
	override(corePart, ctCore)
	for i := 1; i <= slides; i++ {
		override(fmt.Sprintf("ppt/slides/slide%d.xml", i), ctSlide)
	}
	return doc
}

func coreProps(title, creator string) *etree.Document {
	doc := newXML()
	root := doc.CreateElement("cp:coreProperties")
	root.CreateAttr("xmlns:cp", "http://schemas.openxmlformats.org/package/2006/metadata/core-properties")
	root.CreateAttr("xmlns:dc", "http://purl.org/dc/elements/1.1/")
	root.CreateAttr("xmlns:dcterms", "http://purl.org/dc/terms/")
	root.CreateAttr("xmlns:xsi", "http://www.w3.org/2001/XMLSchema-instance")
	root.CreateElement("dc:title").SetText(title)
	root.CreateElement("dc:creator").SetText(creator)
	return doc
}

func newXML() *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="yes"`)
	return doc
}

func relsPath(part string) string {
	dir, file := path.Split(part)
	return dir + "_rels/" + file + ".rels"
}

func writeXMLToZip(zw *zip.Writer, name string, doc *etree.Document) error {
	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return fmt.Errorf("序列化 %s 失败: %w", name, err)
	}
	return writeDataToZip(zw, name, buf.Bytes())
}

func writeDataToZip(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
	if err != nil {
		return fmt.Errorf("写入 %s 失败: %w", name, err)
	}
	_, err = io.Copy(w, bytes.NewReader(data))
	return err
}
