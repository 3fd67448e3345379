package rodhost

// 在页面内执行的脚本。rod 会等待返回的 Promise。

const nextFrameJS = `() => new Promise(r => requestAnimationFrame(() => requestAnimationFrame(() => r(true))))`

const fontsReadyJS = `() => document.fonts ? document.fonts.ready.then(() => true) : true`

const imagesDecodedJS = `() => Promise.all(Array.from(document.images).map(img =>
	img.complete ? (img.decode ? img.decode().catch(() => null) : null)
	: new Promise(r => { img.addEventListener('load', r, {once: true}); img.addEventListener('error', r, {once: true}); })
)).then(() => true)`

// snapshotJS walks the document into the arena layout of visual.Tree. Text
// nodes are remembered in window.__vellumText by node id for range queries.
const snapshotJS = `(props) => {
	const skip = new Set(['head', 'script', 'style', 'template', 'noscript', 'meta', 'link', 'title', 'base']);
	const nodes = [];
	const texts = [];
	const sx = window.scrollX, sy = window.scrollY;
	const boxOf = r => ({x: r.left + sx, y: r.top + sy, w: r.width, h: r.height});
	const styleOf = el => {
		const cs = getComputedStyle(el);
		const s = {};
		for (const p of props) {
			const v = cs[p];
			if (v) s[p] = v;
		}
		return s;
	};
	const add = (n, parent) => {
		n.id = nodes.length;
		n.parent = parent;
		nodes.push(n);
		if (parent >= 0) (nodes[parent].children = nodes[parent].children || []).push(n.id);
		return n.id;
	};
	const walk = (el, parent) => {
		const tag = el.tagName.toLowerCase();
		if (skip.has(tag)) return;
		const node = {kind: 'box', tag: tag, box: boxOf(el.getBoundingClientRect()), style: styleOf(el)};
		if (tag === 'img') {
			node.kind = 'image';
			node.src = el.currentSrc || el.src;
			node.naturalW = el.naturalWidth;
			node.naturalH = el.naturalHeight;
		} else if (tag === 'svg') {
			node.kind = 'vector';
			node.markup = new XMLSerializer().serializeToString(el);
		}
		const id = add(node, parent);
		if (node.kind !== 'box') return;
		for (const child of el.childNodes) {
			if (child.nodeType === Node.ELEMENT_NODE) {
				walk(child, id);
			} else if (child.nodeType === Node.TEXT_NODE && child.data.trim() !== '') {
				const r = document.createRange();
				r.selectNodeContents(child);
				const tid = add({kind: 'text', text: child.data, box: boxOf(r.getBoundingClientRect()), style: {}}, id);
				texts[tid] = child;
			}
		}
	};
	const de = document.documentElement;
	walk(de, -1);
	window.__vellumText = texts;
	const body = document.body;
	return JSON.stringify({
		title: document.title,
		width: de.clientWidth,
		height: de.clientHeight,
		contentHeight: Math.max(de.scrollHeight, body ? body.scrollHeight : 0),
		root: 0,
		nodes: nodes,
	});
}`

const rangeRectsJS = `(id, start, end) => {
	const t = (window.__vellumText || [])[id];
	if (!t) throw new Error('unknown text node ' + id);
	const len = t.data.length;
	const r = document.createRange();
	r.setStart(t, Math.min(start, len));
	r.setEnd(t, Math.min(end, len));
	const sx = window.scrollX, sy = window.scrollY;
	return JSON.stringify(Array.from(r.getClientRects())
		.filter(b => b.width > 0 && b.height > 0)
		.map(b => ({x: b.left + sx, y: b.top + sy, w: b.width, h: b.height})));
}`
