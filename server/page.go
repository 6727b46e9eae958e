package server

// indexPage is the whole browser UI. {{theme}} is replaced with the
// configured default theme before serving.
const indexPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Glance OCR</title>
<style>
  :root {
    --bg: #ffffff;
    --fg: #1a1a1a;
    --panel: #f5f5f5;
    --border: #d9d9d9;
    --accent: #4CAF50;
  }
  body.dark {
    --bg: #14161a;
    --fg: #e6e6e6;
    --panel: #1e2127;
    --border: #32363e;
    --accent: #45a049;
  }
  body {
    font-family: 'Helvetica Neue', Helvetica, Arial, sans-serif;
    background: var(--bg);
    color: var(--fg);
    margin: 0;
    padding: 24px;
  }
  h1 { text-align: center; }
  .layout { display: flex; gap: 24px; max-width: 1200px; margin: 0 auto; flex-wrap: wrap; }
  .column { background: var(--panel); border: 1px solid var(--border); border-radius: 8px; padding: 16px; }
  .input-column { flex: 1; min-width: 280px; }
  .results-column { flex: 2; min-width: 320px; }
  label { display: block; margin: 12px 0 4px; }
  input[type=text], input[type=file] {
    width: 100%; box-sizing: border-box; padding: 8px;
    background: var(--bg); color: var(--fg);
    border: 1px solid var(--border); border-radius: 4px;
  }
  button {
    background-color: var(--accent); color: white; border: none;
    padding: 10px 15px; border-radius: 5px; cursor: pointer; margin-top: 12px;
  }
  button:hover { filter: brightness(1.1); }
  #theme-toggle { float: right; background: var(--panel); color: var(--fg); border: 1px solid var(--border); }
  pre {
    white-space: pre-wrap; word-break: break-word;
    background: var(--bg); border: 1px solid var(--border);
    border-radius: 4px; padding: 12px; max-height: 300px; overflow: auto;
  }
  #rendered { border: 1px solid var(--border); border-radius: 4px; padding: 12px; background: var(--bg); }
  #rendered img, #gallery img { max-width: 100%; }
  #gallery { display: grid; grid-template-columns: 1fr 1fr; gap: 8px; margin-top: 8px; }
  #history li { margin: 4px 0; }
  #history .meta { opacity: 0.6; font-size: 0.85em; }
  #error { color: #d33; white-space: pre-wrap; }
  .hidden { display: none; }
</style>
</head>
<body class="{{theme}}">
<button id="theme-toggle">Toggle theme</button>
<h1>Glance OCR</h1>
<div class="layout">
  <div class="column input-column">
    <label><input type="radio" name="input-type" value="url" checked> URL</label>
    <label><input type="radio" name="input-type" value="file"> File upload</label>
    <div id="url-group">
      <label for="url">Document or Image URL</label>
      <input type="text" id="url" placeholder="https://example.com/document.pdf">
    </div>
    <div id="file-group" class="hidden">
      <label for="file">Upload PDF or Image</label>
      <input type="file" id="file" accept=".pdf,.jpg,.jpeg,.png">
    </div>
    <button id="extract">Extract Text and Images</button>
    <div id="error"></div>
    <h3>History</h3>
    <input type="text" id="history-search" placeholder="Search past extractions">
    <ul id="history"></ul>
  </div>
  <div class="column results-column">
    <h3>Extracted Plain Text <button id="copy">Copy</button></h3>
    <pre id="text"></pre>
    <h3>Rendered Markdown</h3>
    <div id="rendered"></div>
    <h3>Extracted Images</h3>
    <div id="gallery"></div>
  </div>
</div>
<script>
(function () {
  var toggle = document.getElementById('theme-toggle');
  var saved = localStorage.getItem('glance-theme');
  if (saved) { document.body.className = saved; }
  toggle.addEventListener('click', function () {
    var next = document.body.classList.contains('dark') ? 'light' : 'dark';
    document.body.className = next;
    localStorage.setItem('glance-theme', next);
  });

  var radios = document.querySelectorAll('input[name=input-type]');
  radios.forEach(function (radio) {
    radio.addEventListener('change', function () {
      document.getElementById('url-group').classList.toggle('hidden', radio.value !== 'url');
      document.getElementById('file-group').classList.toggle('hidden', radio.value !== 'file');
    });
  });

  function setError(message) {
    document.getElementById('error').textContent = message || '';
  }

  function showResult(result) {
    document.getElementById('text').textContent = result.text;
    document.getElementById('rendered').innerHTML = result.html;
    var gallery = document.getElementById('gallery');
    gallery.innerHTML = '';
    (result.images || []).forEach(function (src) {
      var img = document.createElement('img');
      img.src = src;
      gallery.appendChild(img);
    });
  }

  function loadHistory(query) {
    var url = '/api/history' + (query ? '?q=' + encodeURIComponent(query) : '');
    fetch(url).then(function (resp) { return resp.json(); }).then(function (entries) {
      var list = document.getElementById('history');
      list.innerHTML = '';
      entries.forEach(function (entry) {
        var li = document.createElement('li');
        var label = entry.title || entry.url;
        li.textContent = label;
        var meta = document.createElement('div');
        meta.className = 'meta';
        meta.textContent = entry.url + ' · ' + entry.pages + ' pages';
        li.appendChild(meta);
        list.appendChild(li);
      });
    });
  }

  document.getElementById('history-search').addEventListener('change', function (e) {
    loadHistory(e.target.value.trim());
  });

  document.getElementById('copy').addEventListener('click', function () {
    navigator.clipboard.writeText(document.getElementById('text').textContent);
  });

  document.getElementById('extract').addEventListener('click', function () {
    setError('');
    var mode = document.querySelector('input[name=input-type]:checked').value;
    var request;

    if (mode === 'url') {
      var url = document.getElementById('url').value;
      request = fetch('/api/extract', {
        method: 'POST',
        headers: { 'Content-Type': 'application/json' },
        body: JSON.stringify({ url: url })
      });
    } else {
      var file = document.getElementById('file').files[0];
      if (!file) { setError('Please upload a file.'); return; }
      var form = new FormData();
      form.append('file', file);
      request = fetch('/api/extract', { method: 'POST', body: form });
    }

    request.then(function (resp) {
      if (!resp.ok) {
        return resp.text().then(function (message) { throw new Error(message); });
      }
      return resp.json();
    }).then(function (result) {
      showResult(result);
      loadHistory('');
    }).catch(function (err) {
      setError(err.message);
    });
  });

  loadHistory('');
})();
</script>
</body>
</html>
`
